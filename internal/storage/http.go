package storage

import (
	"context"
	"net/http"
	"strings"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"

	"github.com/zestcart/zestcart/config"
)

// HTTPStore uploads assets to an external object service over HTTP
// multipart and serves them from its public URL.
type HTTPStore struct {
	endpoint  string
	token     string
	publicURL string
}

func NewHTTPStore(cfg config.StorageConfig) (*HTTPStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("http storage endpoint not configured")
	}
	return &HTTPStore{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		token:     cfg.Token,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

func (s *HTTPStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	var code int
	err := gout.POST(s.endpoint+"/objects").
		WithContext(ctx).
		SetHeader(gout.H{"Authorization": "Bearer " + s.token}).
		SetForm(gout.H{"name": name, "file": gout.FormMem(data)}).
		BindJSON(&res).
		Code(&code).
		Do()
	if err != nil {
		return "", errors.Wrap(err, "upload asset")
	}
	if code != http.StatusOK && code != http.StatusCreated {
		return "", errors.Errorf("asset service returned status %d", code)
	}
	if res.URL != "" {
		return res.URL, nil
	}
	return s.publicURL + "/" + name, nil
}

func (s *HTTPStore) Remove(ctx context.Context, name string) error {
	var code int
	err := gout.DELETE(s.endpoint+"/objects/"+name).
		WithContext(ctx).
		SetHeader(gout.H{"Authorization": "Bearer " + s.token}).
		Code(&code).
		Do()
	if err != nil {
		return errors.Wrap(err, "remove asset")
	}
	if code != http.StatusOK && code != http.StatusNoContent && code != http.StatusNotFound {
		return errors.Errorf("asset service returned status %d", code)
	}
	return nil
}
