/**
 * @description
 * This package provides a client for S3-compatible object storage (Hetzner
 * Object Storage in production, any S3 endpoint in general). It uploads image
 * bytes under a caller-chosen key with a public-read ACL and constructs the
 * publicly resolvable URL for the stored object.
 *
 * @dependencies
 * - bytes, context, fmt, strings, time: Standard Go libraries.
 * - github.com/aws/aws-sdk-go-v2: The official AWS SDK, used against the
 *   S3-compatible endpoint.
 */
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client wraps an S3 client bound to a single public bucket.
type Client struct {
	s3c      *s3.Client
	bucket   string
	endpoint string
}

// normalizeEndpoint strips any scheme prefix so the endpoint can be used both
// to dial the API and to build virtual-hosted public URLs.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return strings.TrimSuffix(endpoint, "/")
}

// NewClient creates a client for the given S3-compatible endpoint and bucket
// using static credentials.
func NewClient(ctx context.Context, endpoint, region, accessKey, secretKey, bucket string) (*Client, error) {
	endpoint = normalizeEndpoint(endpoint)

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://" + endpoint)
	})

	return &Client{s3c: s3c, bucket: bucket, endpoint: endpoint}, nil
}

// Put stores the bytes under key with the given content type and a public-read
// ACL, returning the public URL of the object. The write is durable before the
// URL is returned.
func (c *Client) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.s3c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to object storage: %w", err)
	}

	return c.PublicURL(key), nil
}

// PublicURL returns the virtual-hosted-style URL for an object in the bucket.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", c.bucket, c.endpoint, key)
}
