package uploader

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/john/tmichat/internal/recorder"
)

// Options selects the bucket and how to authenticate against it
type Options struct {
	Bucket               string
	Region               string
	Endpoint             string // For S3-compatible services
	RoleARN              string // Assumed with the web identity token below
	WebIdentityTokenFile string
	AccessKeyID          string // Static credentials
	SecretAccessKey      string
	DeleteAfterUpload    bool
	MaxRetries           int
}

// putObjectAPI is the slice of the S3 client the uploader needs
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader ships closed chat logs to S3
type Uploader struct {
	client      putObjectAPI
	bucket      string
	deleteAfter bool
	maxRetries  int
	backoff     func(attempt int) time.Duration
}

// New creates an S3 uploader. Credentials come from, in order: a role
// assumed with a web identity token, static keys, or the default chain.
func New(ctx context.Context, opts Options) (*Uploader, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.RoleARN == "" && opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if opts.RoleARN != "" {
		provider := stscreds.NewWebIdentityRoleProvider(
			sts.NewFromConfig(cfg),
			opts.RoleARN,
			stscreds.IdentityTokenFile(opts.WebIdentityTokenFile),
		)
		cfg.Credentials = aws.NewCredentialsCache(provider)
		log.Printf("Using web identity credentials with role: %s", opts.RoleARN)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newWithClient(client, opts), nil
}

func newWithClient(client putObjectAPI, opts Options) *Uploader {
	return &Uploader{
		client:      client,
		bucket:      opts.Bucket,
		deleteAfter: opts.DeleteAfterUpload,
		maxRetries:  opts.MaxRetries,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
}

// PendingFiles lists chat logs left in dir by an earlier run
func PendingFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// Start uploads every path received on files until ctx is done
func (u *Uploader) Start(ctx context.Context, files <-chan string) error {
	for {
		select {
		case path := <-files:
			go u.uploadWithRetry(ctx, path)

		case <-ctx.Done():
			log.Println("Uploader shutting down...")
			return ctx.Err()
		}
	}
}

// uploadWithRetry uploads a file, backing off between attempts
func (u *Uploader) uploadWithRetry(ctx context.Context, path string) error {
	filename := filepath.Base(path)

	key, err := ObjectKey(filename)
	if err != nil {
		log.Printf("Error generating S3 key for %s: %v", filename, err)
		return err
	}

	for attempt := 0; ; attempt++ {
		err = u.upload(ctx, path, key)
		if err == nil {
			break
		}
		if attempt >= u.maxRetries {
			log.Printf("Failed to upload %s after %d attempts: %v", filename, attempt+1, err)
			return err
		}

		wait := u.backoff(attempt)
		log.Printf("Upload attempt %d/%d failed for %s: %v. Retrying in %v",
			attempt+1, u.maxRetries+1, filename, err, wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	log.Printf("Successfully uploaded %s to s3://%s/%s", filename, u.bucket, key)

	if u.deleteAfter {
		if err := os.Remove(path); err != nil {
			log.Printf("Error deleting local file %s: %v", path, err)
		} else {
			log.Printf("Deleted local file %s", path)
		}
	}
	return nil
}

func (u *Uploader) upload(ctx context.Context, path, key string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// ObjectKey maps a log file name to its place in the bucket.
// Input: wild_20251230_103005.jsonl
// Output: wild/2025/12/30/wild_20251230_103005.jsonl
func ObjectKey(filename string) (string, error) {
	name := strings.TrimSuffix(filename, ".jsonl")
	if name == filename {
		return "", fmt.Errorf("invalid filename format: %s", filename)
	}

	// Channel names may contain underscores, so take the timestamp from the end
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid filename format: %s", filename)
	}
	channel := strings.Join(parts[:len(parts)-2], "_")
	stamp := strings.Join(parts[len(parts)-2:], "_")

	t, err := time.Parse(recorder.FileTimeLayout, stamp)
	if err != nil {
		return "", fmt.Errorf("parse timestamp: %w", err)
	}

	return fmt.Sprintf("%s/%04d/%02d/%02d/%s", channel, t.Year(), t.Month(), t.Day(), filename), nil
}
