package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"home_compare/internal/config"
	"home_compare/internal/lib/metrics"

	"github.com/google/uuid"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrDisabled — объектное хранилище отключено конфигурацией.
var ErrDisabled = errors.New("object storage is disabled")

// Client — хранилище изображений объектов недвижимости.
type Client interface {
	// UploadImage загружает изображение объекта и возвращает публичный URL.
	UploadImage(ctx context.Context, propertyID uuid.UUID, image Image) (string, error)
	// IsEnabled проверяет, включено ли хранилище.
	IsEnabled() bool
}

// Image — загружаемый файл.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type client struct {
	mc         *miniogo.Client
	bucket     string
	publicBase string
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient подключается к MinIO и создаёт бакет при необходимости.
// При выключенном хранилище возвращается клиент-заглушка.
func NewClient(ctx context.Context, cfg config.MinioConfig, log *slog.Logger, m *metrics.Metrics) (Client, error) {
	const op = "minio.NewClient"

	if !cfg.Enabled {
		log.Info("object storage is disabled")
		return &noopClient{}, nil
	}

	mc, err := miniogo.New(cfg.MinioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioRootUser, cfg.MinioRootPassword, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := mc.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("%s: check bucket: %w", op, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.BucketName, miniogo.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%s: create bucket: %w", op, err)
		}
		log.Info("bucket created", slog.String("bucket", cfg.BucketName))
	}

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		publicBase = scheme + "://" + cfg.MinioEndpoint
	}

	return &client{
		mc:         mc,
		bucket:     cfg.BucketName,
		publicBase: publicBase,
		log:        log,
		metrics:    m,
	}, nil
}

func (c *client) IsEnabled() bool {
	return true
}

func (c *client) UploadImage(ctx context.Context, propertyID uuid.UUID, image Image) (string, error) {
	const op = "minio.UploadImage"

	objectName := ObjectName(propertyID, image.Filename)
	contentType := image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	timer := c.metrics.StartTimer(metrics.ServiceStorage)
	start := time.Now()
	info, err := c.mc.PutObject(ctx, c.bucket, objectName, image.Body, image.Size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	timer.Stop(err)
	if err != nil {
		c.log.Error("image upload failed",
			slog.String("op", op),
			slog.String("object", objectName),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	c.log.Debug("image uploaded",
		slog.String("object", objectName),
		slog.Int64("size", info.Size),
		slog.Duration("latency", time.Since(start)),
	)

	return c.publicBase + "/" + c.bucket + "/" + objectName, nil
}

// ObjectName строит ключ объекта: properties/{id}/{random}{ext}.
func ObjectName(propertyID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("properties/%s/%s%s", propertyID, uuid.NewString(), ext)
}

type noopClient struct{}

func (c *noopClient) UploadImage(ctx context.Context, propertyID uuid.UUID, image Image) (string, error) {
	return "", ErrDisabled
}

func (c *noopClient) IsEnabled() bool {
	return false
}
