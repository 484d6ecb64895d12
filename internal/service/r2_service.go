package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/postgate/configs"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ImageStorage uploads normalized images and returns their public URL.
type ImageStorage interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type R2Service struct {
	config cfg.R2
	client objectPutter
}

func NewR2Service(ctx context.Context, r2 cfg.R2) (*R2Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})
	return &R2Service{config: r2, client: client}, nil
}

func (r *R2Service) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("posts/%s%s", id, extensionFor(contentType))

	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	if _, err := r.client.PutObject(ctx, input); err != nil {
		slog.Error("uploading image to r2", "key", key, "error", err)
		return "", fmt.Errorf("error uploading image: %w", err)
	}

	return strings.TrimRight(r.config.PublicURL, "/") + "/" + key, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}
