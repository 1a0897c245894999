package pkg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type BlobConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	UseSSL       bool
	Expiry       time.Duration
	DefaultImage string
}

// ImagePresigner 上传头像并生成带签名的临时下载地址
type ImagePresigner struct {
	client       *minio.Client
	bucket       string
	expiry       time.Duration
	defaultImage string
}

// NewImagePresigner Endpoint 为空时不连接对象存储，所有头像都返回默认地址
func NewImagePresigner(cfg BlobConfig) (*ImagePresigner, error) {
	p := &ImagePresigner{
		bucket:       cfg.Bucket,
		expiry:       cfg.Expiry,
		defaultImage: cfg.DefaultImage,
	}
	if p.expiry <= 0 {
		p.expiry = time.Hour
	}
	if cfg.Endpoint == "" {
		return p, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	p.client = client
	return p, nil
}

func (p *ImagePresigner) URL(ctx context.Context, key string) string {
	if p == nil {
		return ""
	}
	if key == "" || p.client == nil {
		return p.defaultImage
	}
	u, err := p.client.PresignedGetObject(ctx, p.bucket, key, p.expiry, url.Values{})
	if err != nil {
		slog.WarnContext(ctx, "presign profile image failed", "key", key, "err", err)
		return p.defaultImage
	}
	return u.String()
}

// Upload size 未知时传 -1，由 minio 走分片上传
func (p *ImagePresigner) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if p == nil || p.client == nil {
		return ErrStorageUnavailable
	}
	_, err := p.client.PutObject(ctx, p.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", p.bucket, key, err)
	}
	return nil
}
