// Package s3export stores export documents in S3 and hands out presigned
// download URLs.
package s3export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/remedyops/findings-api/internal/app"
	"github.com/remedyops/findings-api/pkg/domain/shared"
	"github.com/remedyops/findings-api/pkg/logger"
)

// Config contains configuration for the export sink.
type Config struct {
	Bucket string
	Prefix string
	URLTTL time.Duration
	Region string

	// Endpoint overrides the S3 endpoint, for local development against
	// MinIO style emulators.
	Endpoint string
}

// Sink stores export documents in one bucket under a fixed prefix.
type Sink struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       Config
	log       *logger.Logger
}

// NewSink creates a new export sink.
func NewSink(ctx context.Context, cfg Config, log *logger.Logger) (*Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &Sink{
		client:    client,
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
		log:       log.With("component", "export_sink"),
	}, nil
}

var _ app.ExportSink = (*Sink)(nil)

// Store uploads the document and returns a presigned, time-limited download
// URL for it.
func (s *Sink) Store(ctx context.Context, name string, data []byte) (string, error) {
	key := s.objectKey(name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put export object: %v", shared.ErrDependency, err)
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.URLTTL))
	if err != nil {
		return "", fmt.Errorf("%w: presign export object: %v", shared.ErrDependency, err)
	}

	s.log.Info("export document stored",
		"key", key,
		"bytes", len(data),
		"url_ttl", s.cfg.URLTTL,
	)
	return presigned.URL, nil
}

func (s *Sink) objectKey(name string) string {
	prefix := s.cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + name
}
