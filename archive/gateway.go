// Package archive stores encoded snapshots in S3 so finished or paused runs
// can be kept and shared off the training box. Each snapshot becomes one
// object named by a ULID, with the identity and archival time riding as
// object metadata.
package archive

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"

	"github.com/trainlog/trainlog"
	"github.com/trainlog/trainlog/snapshot"
)

// ErrNotFound reports that no archived snapshot has the requested ID.
var ErrNotFound = errors.New("archive: snapshot not found")

const (
	metaIdentity   = "identity"
	metaArchivedAt = "archived-at"

	contentType = "application/zstd"
)

// ArchiveInfo describes one archived snapshot.
type ArchiveInfo struct {
	ID         string
	Identity   trainlog.Identity
	ArchivedAt time.Time
	Size       int64
}

// Config holds the gateway's S3 settings.
type Config struct {
	Bucket string
	Prefix string
	Region string
}

// Gateway archives snapshots to one bucket under an optional key prefix.
type Gateway struct {
	client S3API
	bucket string
	prefix string
}

// NewGateway builds a gateway on the ambient AWS configuration.
func NewGateway(cfg Config) (*Gateway, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load AWS config failed: %w", err)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}
	return NewGatewayWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

// NewGatewayWithClient builds a gateway on a caller-supplied client,
// usually the MockS3Client in tests.
func NewGatewayWithClient(client S3API, bucket, prefix string) *Gateway {
	return &Gateway{client: client, bucket: bucket, prefix: prefix}
}

// ulid.MonotonicEntropy is not safe for concurrent use.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newArchiveID returns a fresh ULID. IDs generated later sort later, so
// listings come back in archival order.
func newArchiveID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Push encodes the snapshot and uploads it under a fresh archive ID.
func (g *Gateway) Push(ctx context.Context, snap *snapshot.Snapshot) (ArchiveInfo, error) {
	content, err := snapshot.Encode(snap)
	if err != nil {
		return ArchiveInfo{}, err
	}

	info := ArchiveInfo{
		ID:         newArchiveID(),
		Identity:   snap.Identity,
		ArchivedAt: time.Now().UTC().Truncate(time.Second),
		Size:       int64(len(content)),
	}

	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(g.key(info.ID)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			metaIdentity:   snap.Identity.String(),
			metaArchivedAt: info.ArchivedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return ArchiveInfo{}, fmt.Errorf("upload snapshot failed: %w", err)
	}
	return info, nil
}

// Pull downloads and decodes the snapshot archived under id.
func (g *Gateway) Pull(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	if _, err := ulid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse archive ID %q failed: %w", id, err)
	}

	obj, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(g.key(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("download snapshot failed: %w", err)
	}
	defer obj.Body.Close()

	content, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot failed: %w", err)
	}
	return snapshot.Decode(content)
}

// List returns every archived snapshot under the gateway's prefix, oldest
// first. Objects without archive metadata are ignored.
func (g *Gateway) List(ctx context.Context) ([]ArchiveInfo, error) {
	listPrefix := g.key("")
	out, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(listPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots failed: %w", err)
	}

	infos := []ArchiveInfo{}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		id := key[strings.LastIndex(key, "/")+1:]
		if _, err := ulid.Parse(id); err != nil {
			continue
		}

		info, err := g.stat(ctx, id, key)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// stat reads one object's archive metadata.
func (g *Gateway) stat(ctx context.Context, id, key string) (ArchiveInfo, error) {
	obj, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ArchiveInfo{}, err
	}
	defer obj.Body.Close()

	identity, err := trainlog.IdentityFromString(obj.Metadata[metaIdentity])
	if err != nil {
		return ArchiveInfo{}, err
	}
	archivedAt, err := time.Parse(time.RFC3339, obj.Metadata[metaArchivedAt])
	if err != nil {
		return ArchiveInfo{}, err
	}

	content, err := io.ReadAll(obj.Body)
	if err != nil {
		return ArchiveInfo{}, err
	}

	return ArchiveInfo{
		ID:         id,
		Identity:   identity,
		ArchivedAt: archivedAt,
		Size:       int64(len(content)),
	}, nil
}

// Remove deletes the snapshot archived under id. Removing an absent ID is
// a no-op, as S3 deletes are.
func (g *Gateway) Remove(ctx context.Context, id string) error {
	if _, err := ulid.Parse(id); err != nil {
		return fmt.Errorf("parse archive ID %q failed: %w", id, err)
	}

	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(g.key(id)),
	})
	if err != nil {
		return fmt.Errorf("delete snapshot failed: %w", err)
	}
	return nil
}

// key builds the object key <prefix>/snapshots/<id>.
func (g *Gateway) key(id string) string {
	parts := []string{"snapshots", id}
	if g.prefix != "" {
		parts = append([]string{g.prefix}, parts...)
	}
	if id == "" {
		parts = parts[:len(parts)-1]
		return strings.Join(parts, "/") + "/"
	}
	return strings.Join(parts, "/")
}
