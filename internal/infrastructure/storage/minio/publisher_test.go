package minio

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/vizcrn/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expires, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

type PublisherTestSuite struct {
	suite.Suite
	api    *MockMinIOAPI
	client *MinIOClient
	pub    *Publisher
	dir    string
}

func (s *PublisherTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.client = newClient(s.api, &MinIOConfig{Bucket: "networks", Prefix: "vizcrn"}, logging.NewNopLogger())
	s.pub = NewPublisher(s.client, logging.NewNopLogger())
	s.dir = s.T().TempDir()
}

func (s *PublisherTestSuite) writeFile(name, body string) string {
	p := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(p, []byte(body), 0o644))
	return p
}

func (s *PublisherTestSuite) TestApplyDefaults() {
	assert.Equal(s.T(), "us-east-1", s.client.config.Region)
	assert.Equal(s.T(), 24*time.Hour, s.client.config.PresignExpiry)
}

func (s *PublisherTestSuite) TestEnsureBucket_Creates() {
	ctx := context.Background()
	s.api.On("BucketExists", ctx, "networks").Return(false, nil)
	s.api.On("MakeBucket", ctx, "networks", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	s.Require().NoError(s.client.EnsureBucket(ctx))
	s.api.AssertExpectations(s.T())
}

func (s *PublisherTestSuite) TestEnsureBucket_Exists() {
	ctx := context.Background()
	s.api.On("BucketExists", ctx, "networks").Return(true, nil)

	s.Require().NoError(s.client.EnsureBucket(ctx))
	s.api.AssertNotCalled(s.T(), "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func (s *PublisherTestSuite) TestEnsureBucket_Error() {
	ctx := context.Background()
	s.api.On("BucketExists", ctx, "networks").Return(false, errors.New("denied"))

	err := s.client.EnsureBucket(ctx)
	s.True(apperrors.IsCode(err, apperrors.CodePublishFailed))
}

func (s *PublisherTestSuite) TestPublish() {
	ctx := context.Background()
	html := s.writeFile("crn.html", "<html></html>")
	edges := s.writeFile("reactions.txt", "1,2,3\n")

	s.api.On("PutObject", ctx, "networks", "vizcrn/run-1/crn.html", mock.Anything, int64(13),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "text/html; charset=utf-8" && o.UserMetadata["run-id"] == "run-1" && o.UserMetadata["kind"] == "page"
		})).Return(minio.UploadInfo{ETag: "e1", Size: 13}, nil)
	s.api.On("PutObject", ctx, "networks", "vizcrn/run-1/reactions.txt", mock.Anything, int64(6),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "text/plain; charset=utf-8" })).
		Return(minio.UploadInfo{ETag: "e2", Size: 6}, nil)
	u, _ := url.Parse("https://s3.local/networks/vizcrn/run-1/crn.html?sig=x")
	s.api.On("PresignedGetObject", ctx, "networks", "vizcrn/run-1/crn.html", 24*time.Hour, url.Values(nil)).Return(u, nil)
	s.api.On("PresignedGetObject", ctx, "networks", "vizcrn/run-1/reactions.txt", 24*time.Hour, url.Values(nil)).
		Return(nil, errors.New("no presign"))

	objs, err := s.pub.Publish(ctx, "run-1", []Artifact{{Path: html, Kind: "page"}, {Path: edges, Kind: "reactions"}})
	s.Require().NoError(err)
	s.Require().Len(objs, 2)
	s.Equal("vizcrn/run-1/crn.html", objs[0].ObjectKey)
	s.Equal(u.String(), objs[0].URL)
	s.Equal("e2", objs[1].ETag)
	s.Empty(objs[1].URL)
	s.api.AssertExpectations(s.T())
}

func (s *PublisherTestSuite) TestPublish_UploadFails() {
	ctx := context.Background()
	html := s.writeFile("crn.html", "x")
	s.api.On("PutObject", ctx, "networks", "vizcrn/r/crn.html", mock.Anything, int64(1), mock.Anything).
		Return(minio.UploadInfo{}, errors.New("boom"))

	objs, err := s.pub.Publish(ctx, "r", []Artifact{{Path: html, Kind: "page"}, {Path: html, Kind: "page"}})
	s.Empty(objs)
	s.True(apperrors.IsCode(err, apperrors.CodePublishFailed))
	s.api.AssertNumberOfCalls(s.T(), "PutObject", 1)
}

func (s *PublisherTestSuite) TestPublish_MissingFile() {
	_, err := s.pub.Publish(context.Background(), "r", []Artifact{{Path: filepath.Join(s.dir, "nope.png")}})
	s.True(apperrors.IsCode(err, apperrors.ErrCodeIO))
}

func (s *PublisherTestSuite) TestPublish_Closed() {
	require.NoError(s.T(), s.client.Close())
	_, err := s.pub.Publish(context.Background(), "r", nil)
	s.ErrorIs(err, ErrMinIOClientClosed)
}

func TestPublisherTestSuite(t *testing.T) {
	suite.Run(t, new(PublisherTestSuite))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("preview.PNG"))
	assert.Equal(t, "application/json", contentType("a/compounds.json"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
