package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func videoFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "reel.mp4")
	require.NoError(t, os.WriteFile(p, []byte("mp4data"), 0o644))
	return p
}

func TestDisabledWithoutCredentials(t *testing.T) {
	s, err := NewS3Storage(context.Background(), Config{Bucket: "reels"})
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	u, err := s.UploadVideo(context.Background(), "/does/not/matter.mp4", "x.mp4")
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestUploadVideo(t *testing.T) {
	put := &fakePutter{}
	s := &S3Storage{client: put, cfg: Config{
		Bucket:        "reels",
		Region:        "us-east-1",
		PublicBaseURL: "https://cdn.example",
		KeyPrefix:     "/daily/",
		PublicRead:    true,
	}}

	u, err := s.UploadVideo(context.Background(), videoFile(t), "gita-2-47-1700000000000.mp4")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/daily/gita-2-47-1700000000000.mp4", u)
	assert.Equal(t, "reels", aws.ToString(put.input.Bucket))
	assert.Equal(t, "daily/gita-2-47-1700000000000.mp4", aws.ToString(put.input.Key))
	assert.Equal(t, "video/mp4", aws.ToString(put.input.ContentType))
	assert.Equal(t, int64(7), aws.ToInt64(put.input.ContentLength))
	assert.Equal(t, types.ObjectCannedACLPublicRead, put.input.ACL)
	assert.Equal(t, "mp4data", string(put.body))
}

func TestUploadVideoErrors(t *testing.T) {
	s := &S3Storage{client: &fakePutter{err: errors.New("AccessDenied")}, cfg: Config{Bucket: "reels"}}

	_, err := s.UploadVideo(context.Background(), videoFile(t), "x.mp4")
	assert.ErrorContains(t, err, "AccessDenied")

	_, err = s.UploadVideo(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "x.mp4")
	assert.ErrorContains(t, err, "open video")
}

func TestPublicURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"public base", Config{Bucket: "b", PublicBaseURL: "https://cdn.example"}, "https://cdn.example/a%20b.mp4"},
		{"path style", Config{Bucket: "b", Endpoint: "https://minio.local:9000", UsePathStyle: true}, "https://minio.local:9000/b/a%20b.mp4"},
		{"virtual host", Config{Bucket: "b", Endpoint: "https://r2.example"}, "https://b.r2.example/a%20b.mp4"},
		{"aws", Config{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com/a%20b.mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &S3Storage{cfg: tc.cfg}
			assert.Equal(t, tc.want, s.PublicURL("a b.mp4"))
		})
	}
}
