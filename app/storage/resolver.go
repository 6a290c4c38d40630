package storage

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-verification/app/factory"
)

type signer interface {
	SignedURL(ctx context.Context, publicID string) (string, error)
}

type urlCache interface {
	Get(ctx context.Context, objectID string) (string, error)
	Set(ctx context.Context, objectID, url string) error
}

// ReceiptResolver turns a stored receipt reference into a URL. Absolute http(s)
// URLs pass through; anything else is treated as a storage object id and signed.
type ReceiptResolver struct {
	signer signer
	cache  urlCache
	logger logrus.FieldLogger
}

// NewReceiptResolver accepts a nil signer (pass-through only) and a nil cache.
func NewReceiptResolver(s signer, cache urlCache) *ReceiptResolver {
	return &ReceiptResolver{
		signer: s,
		cache:  cache,
		logger: factory.NewModuleLogger("receipt-storage"),
	}
}

func (r *ReceiptResolver) ResolveReceiptURL(ctx context.Context, objectID string) (string, error) {
	objectID = strings.TrimSpace(objectID)
	if objectID == "" || isAbsoluteURL(objectID) || r.signer == nil {
		return objectID, nil
	}

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, objectID)
		if err != nil {
			r.logger.WithError(err).Warn("receipt url cache read failed")
		} else if cached != "" {
			return cached, nil
		}
	}

	signed, err := r.signer.SignedURL(ctx, objectID)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, objectID, signed); err != nil {
			r.logger.WithError(err).Warn("receipt url cache write failed")
		}
	}
	return signed, nil
}

func isAbsoluteURL(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
}
