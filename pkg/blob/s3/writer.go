package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// multipartThreshold is also the S3 minimum part size.
const multipartThreshold = 5 * 1024 * 1024

// Put uploads data in one request, switching to the multipart uploader for
// payloads above multipartThreshold.
func (c *Client) Put(ctx context.Context, path string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key(path)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if len(data) <= multipartThreshold {
		if _, err := c.s3.PutObject(ctx, input); err != nil {
			return fmt.Errorf("s3blob: put %s: %w", path, err)
		}
		return nil
	}

	uploader := manager.NewUploader(c.s3, func(u *manager.Uploader) {
		u.PartSize = multipartThreshold
	})
	if _, err := uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", path, err)
	}
	return nil
}
