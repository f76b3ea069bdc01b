// Package storage is the object-store boundary. Reports and uploaded
// documents live in an S3-compatible store (MinIO in the reference
// deployment), one bucket per analyzed-type family.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"a11y-checker/internal/config"
	"a11y-checker/internal/models"
)

// ObjectStore is the durable put/get/list boundary used by the pipeline.
type ObjectStore interface {
	Put(ctx context.Context, container, key string, body []byte, contentType string) error
	Get(ctx context.Context, container, key string) ([]byte, error)
	List(ctx context.Context, container, prefix string) ([]string, error)
	Delete(ctx context.Context, container, key string) error
}

// Client implements ObjectStore against S3/MinIO.
type Client struct {
	s3 *s3.Client
}

// New builds the S3 client, pointing it at a custom endpoint with path-style
// addressing when configured (required for MinIO).
func New(ctx context.Context, cfg config.Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	if cfg.S3Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               cfg.S3Endpoint,
					HostnameImmutable: cfg.S3PathStyle,
					SigningRegion:     cfg.S3Region,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Client{
		s3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.S3PathStyle
		}),
	}, nil
}

func (c *Client) Put(ctx context.Context, container, key string, body []byte, contentType string) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(container),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return &models.TransportError{Op: fmt.Sprintf("put %s/%s", container, key), Err: err}
	}
	return nil
}

func (c *Client) Get(ctx context.Context, container, key string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, models.ErrNotFound
		}
		return nil, &models.TransportError{Op: fmt.Sprintf("get %s/%s", container, key), Err: err}
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &models.TransportError{Op: fmt.Sprintf("read %s/%s", container, key), Err: err}
	}
	return body, nil
}

func (c *Client) List(ctx context.Context, container, prefix string) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(container),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, &models.TransportError{Op: fmt.Sprintf("list %s/%s", container, prefix), Err: err}
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if out.NextContinuationToken == nil {
			return keys, nil
		}
		token = out.NextContinuationToken
	}
}

func (c *Client) Delete(ctx context.Context, container, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		return &models.TransportError{Op: fmt.Sprintf("delete %s/%s", container, key), Err: err}
	}
	return nil
}

// ContainerFor selects a bucket from the analyzed-type family. The choice is
// made once at upload time and carried on the artifact record afterwards.
func ContainerFor(cfg config.Config, fileType string) (string, error) {
	switch fileType {
	case models.FileTypePDF:
		return cfg.PDFBucket, nil
	case models.FileTypeHTML:
		return cfg.HTMLBucket, nil
	}
	return "", fmt.Errorf("no container for file type %q", fileType)
}

// ContentTypeFor maps an artifact extension to its media type.
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".html":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
