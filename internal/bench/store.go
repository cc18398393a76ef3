package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNoCredentials is returned by the environment credentials provider
// when the access key variables are unset.
var ErrNoCredentials = errors.New("bench: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")

// ObjectPutter is the subset of the S3 client a Store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store uploads reports to an S3 bucket.
type Store struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// NewStore creates a store writing to bucket under prefix.
func NewStore(client ObjectPutter, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

// Key returns the object key for a report taken at t.
func (s *Store) Key(t time.Time) string {
	return s.prefix + "reorder-" + t.UTC().Format("20060102T150405Z") + ".json"
}

// Put uploads r and returns its key.
func (s *Store) Put(ctx context.Context, r *Report) (string, error) {
	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		return "", fmt.Errorf("bench: encode report: %w", err)
	}

	key := s.Key(s.now())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"items":  fmt.Sprint(r.Workload.Items),
			"rounds": fmt.Sprint(r.Workload.Rounds),
			"go":     r.Run.Go,
		},
	})
	if err != nil {
		return "", fmt.Errorf("bench: s3 upload failed: %w", err)
	}
	return key, nil
}

// NewS3Client creates an S3 client for region using credentials from the
// standard AWS_* environment variables. AWS_ENDPOINT_URL points the client
// at an S3-compatible store with path-style addressing.
func NewS3Client(region string) *s3.Client {
	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, ErrNoCredentials
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "Environment",
	}, nil
}
