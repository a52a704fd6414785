package remote

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// authMethods picks the credential for o. A key file wins if it exists;
// a password is the fallback. A key that exists but cannot be parsed is a
// *ConnectionError, not a silent fallback to the password.
func authMethods(fs afero.Fs, o Options) ([]ssh.AuthMethod, error) {
	if o.KeyFile != "" {
		exists, err := afero.Exists(fs, o.KeyFile)
		if err == nil && exists {
			signer, err := loadSigner(fs, o.KeyFile, o.KeyPassphrase)
			if err != nil {
				return nil, &ConnectionError{Host: o.Host, Err: err}
			}
			return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
		}
	}

	if o.Password != "" {
		password := o.Password
		return []ssh.AuthMethod{
			ssh.Password(password),
			// Some servers only offer keyboard-interactive for passwords.
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		}, nil
	}

	if o.KeyFile != "" {
		return nil, &AuthenticationError{Reason: fmt.Sprintf("key file %s not found and no password given", o.KeyFile)}
	}
	return nil, &AuthenticationError{Reason: "no key file or password given"}
}

func loadSigner(fs afero.Fs, keyFile, passphrase string) (ssh.Signer, error) {
	pemBytes, err := afero.ReadFile(fs, keyFile)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", keyFile, err)
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pemBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("parse key file %s: %w", keyFile, err)
	}
	return signer, nil
}

// IsPassphraseMissing reports whether Connect failed because the key file
// is encrypted and no passphrase was given.
func IsPassphraseMissing(err error) bool {
	var target *ssh.PassphraseMissingError
	return errors.As(err, &target)
}

func hostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("load known hosts %s: %w", knownHostsFile, err)
	}
	return cb, nil
}
