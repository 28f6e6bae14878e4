package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SpacesService stores mapper avatar art in an S3-compatible bucket.
// Avatars are keyed by mapper id so a re-upload replaces the previous
// art in place.
type SpacesService struct {
	client   *s3.Client
	bucket   string
	region   string
	ArtRoot  string
	presence *presenceCache
}

func NewSpacesService(spacesKey, spacesSecret, region, bucket, artRoot string) (*SpacesService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load spaces config: %w", err)
	}

	return &SpacesService{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		region:   region,
		ArtRoot:  strings.Trim(artRoot, "/"),
		presence: newPresenceCache(),
	}, nil
}

// AvatarKey is the object key for a mapper's avatar art.
func (s *SpacesService) AvatarKey(mapperID int64) string {
	return fmt.Sprintf("%s/mappers/%d.png", s.ArtRoot, mapperID)
}

// AvatarURL builds the public CDN URL for a mapper's avatar. It does
// not verify the object exists, use HasAvatar for that.
func (s *SpacesService) AvatarURL(mapperID int64) string {
	return fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com/%s", s.bucket, s.region, s.AvatarKey(mapperID))
}

// UploadAvatar writes avatar art for a mapper, replacing any previous
// object under the same key.
func (s *SpacesService) UploadAvatar(ctx context.Context, mapperID int64, data []byte, contentType string) error {
	key := s.AvatarKey(mapperID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		ACL:         "public-read",
	})
	if err != nil {
		return fmt.Errorf("failed to upload avatar for mapper %d: %w", mapperID, err)
	}
	s.presence.set(mapperID, true)
	return nil
}

// DeleteAvatar removes a mapper's avatar art. Deleting a missing
// object is not an error.
func (s *SpacesService) DeleteAvatar(ctx context.Context, mapperID int64) error {
	key := s.AvatarKey(mapperID)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete avatar for mapper %d: %w", mapperID, err)
	}
	s.presence.set(mapperID, false)
	return nil
}

// HasAvatar reports whether avatar art exists for the mapper. Results
// are cached, a cache miss issues a single HeadObject.
func (s *SpacesService) HasAvatar(ctx context.Context, mapperID int64) bool {
	if present, ok := s.presence.get(mapperID); ok {
		return present
	}

	key := s.AvatarKey(mapperID)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	present := err == nil
	s.presence.set(mapperID, present)
	return present
}

func (s *SpacesService) GetBucket() string {
	return s.bucket
}

func (s *SpacesService) GetRegion() string {
	return s.region
}

// presenceCache remembers which mapper ids have art uploaded so that
// repeated drops of the same mapper do not re-issue HeadObject calls.
type presenceCache struct {
	mu      sync.RWMutex
	entries map[int64]bool
}

func newPresenceCache() *presenceCache {
	return &presenceCache{entries: make(map[int64]bool)}
}

func (c *presenceCache) get(mapperID int64) (present, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	present, ok = c.entries[mapperID]
	return present, ok
}

func (c *presenceCache) set(mapperID int64, present bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[mapperID] = present
}
