package blobstore

type S3Config struct {
	BucketName    string
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	UseAccelerate bool
	// Prefix namespaces every key, so several trees can share a bucket.
	Prefix string
}
