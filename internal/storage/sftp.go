package storage

import (
	"context"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/zestcart/zestcart/config"
)

// SftpStore pushes assets to a remote host over SFTP, typically a
// static file server fronting the upload directory.
type SftpStore struct {
	addr      string
	user      string
	passwd    string
	dir       string
	publicURL string

	mu     sync.Mutex
	sshc   *ssh.Client
	client *sftp.Client
}

func NewSftpStore(cfg config.StorageConfig) (*SftpStore, error) {
	if cfg.SftpAddr == "" {
		return nil, errors.New("sftp storage address not configured")
	}
	s := &SftpStore{
		addr:      cfg.SftpAddr,
		user:      cfg.SftpUser,
		passwd:    cfg.SftpPwd,
		dir:       cfg.SftpDir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SftpStore) connect() error {
	sshc, err := ssh.Dial("tcp", s.addr, &ssh.ClientConfig{
		User:            s.user,
		Auth:            []ssh.AuthMethod{ssh.Password(s.passwd)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         time.Second * 10,
	})
	if err != nil {
		return errors.Wrap(err, "dial sftp host")
	}
	client, err := sftp.NewClient(sshc)
	if err != nil {
		_ = sshc.Close()
		return errors.Wrap(err, "open sftp session")
	}
	s.sshc = sshc
	s.client = client
	return nil
}

// reconnect rebuilds a dead session, the caller holds the lock.
func (s *SftpStore) reconnect() error {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.sshc != nil {
		_ = s.sshc.Close()
	}
	return s.connect()
}

func (s *SftpStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, err := s.put(name, data)
	if err == nil {
		return url, nil
	}
	if rerr := s.reconnect(); rerr != nil {
		return "", rerr
	}
	return s.put(name, data)
}

func (s *SftpStore) put(name string, data []byte) (string, error) {
	if s.dir != "" {
		if err := s.client.MkdirAll(s.dir); err != nil {
			return "", errors.Wrap(err, "create remote dir")
		}
	}
	f, err := s.client.Create(path.Join(s.dir, name))
	if err != nil {
		return "", errors.Wrap(err, "create remote file")
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", errors.Wrap(err, "write remote file")
	}
	return s.publicURL + "/" + name, nil
}

func (s *SftpStore) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.client.Remove(path.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove remote file")
	}
	return nil
}

func (s *SftpStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.sshc != nil {
		return s.sshc.Close()
	}
	return nil
}
