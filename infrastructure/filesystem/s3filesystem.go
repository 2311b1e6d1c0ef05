package filesystem

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ReadFile streams one object from a bucket into outStream.
func ReadFile(ctx context.Context, bucket, key string, outStream io.Writer) error {
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get object %s from bucket %s: %w", key, bucket, err)
	}
	defer resp.Body.Close()

	if _, err = io.Copy(outStream, resp.Body); err != nil {
		return fmt.Errorf("copy object %s from bucket %s: %w", key, bucket, err)
	}
	return nil
}

// ListFiles returns every object key under a prefix in the bucket.
func ListFiles(ctx context.Context, bucket, prefix string) ([]string, error) {
	client, err := newClient(ctx)
	if err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects in bucket %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}

	return keys, nil
}

func newClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}
