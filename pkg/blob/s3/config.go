package s3blob

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds the S3 (or S3-compatible) connection settings.
type ClientConfig struct {
	Endpoint       string // empty for AWS; set for MinIO, R2, iDrive e2
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ForcePathStyle bool
}

// WithEndpoint points the client at an S3-compatible provider.
func WithEndpoint(endpoint string, useSSL bool) ClientOption {
	return func(c *ClientConfig) {
		c.Endpoint = endpoint
		c.UseSSL = useSSL
	}
}

// WithRegion sets the bucket region.
func WithRegion(region string) ClientOption {
	return func(c *ClientConfig) {
		c.Region = region
	}
}

// WithBucket sets the bucket and an optional key prefix.
func WithBucket(bucket, prefix string) ClientOption {
	return func(c *ClientConfig) {
		c.Bucket = bucket
		c.Prefix = prefix
	}
}

// WithCredentials sets static access keys.
func WithCredentials(accessKey, secretKey string) ClientOption {
	return func(c *ClientConfig) {
		c.AccessKey = accessKey
		c.SecretKey = secretKey
	}
}

// WithPathStyle forces bucket-in-path addressing.
func WithPathStyle(force bool) ClientOption {
	return func(c *ClientConfig) {
		c.ForcePathStyle = force
	}
}
