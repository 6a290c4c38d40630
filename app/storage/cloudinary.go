// Package storage resolves stored receipt references into URLs a client can open.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/asset"
	cldconfig "github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/vibast-solutions/ms-go-payment-verification/config"
)

// CloudinarySigner builds signed delivery URLs for receipts uploaded as
// authenticated Cloudinary assets.
type CloudinarySigner struct {
	cfg *cldconfig.Configuration
}

func NewCloudinarySigner(cfg config.CloudinaryConfig) (*CloudinarySigner, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary credentials are incomplete")
	}

	cldCfg, err := cldconfig.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	cldCfg.URL.Secure = true
	cldCfg.URL.SignURL = true

	return &CloudinarySigner{cfg: cldCfg}, nil
}

func (s *CloudinarySigner) SignedURL(_ context.Context, publicID string) (string, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return "", errors.New("receipt public id is empty")
	}

	img, err := asset.Image(publicID, s.cfg)
	if err != nil {
		return "", err
	}
	img.DeliveryType = "authenticated"
	return img.String()
}
