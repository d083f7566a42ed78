package media

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	objects   map[string][]byte
	puts      []*s3.PutObjectInput
	deleteErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = body
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_PutBuildsPublicURL(t *testing.T) {
	client := newFakeS3()
	store := newS3StoreWithClient(client, S3Config{Bucket: "event-images", Region: "eu-north-1"})

	url, err := store.Put(context.Background(), "submissions/u/a.png", "image/png", pngHeader)
	require.NoError(t, err)

	assert.Equal(t, "https://event-images.s3.eu-north-1.amazonaws.com/submissions/u/a.png", url)
	assert.Equal(t, pngHeader, client.objects["submissions/u/a.png"])
	require.Len(t, client.puts, 1)
	assert.Equal(t, "image/png", aws.StringValue(client.puts[0].ContentType))
	assert.Equal(t, "event-images", aws.StringValue(client.puts[0].Bucket))
	assert.Equal(t, s3.ObjectCannedACLPublicRead, aws.StringValue(client.puts[0].ACL))
}

func TestS3Store_BaseURLVariants(t *testing.T) {
	withEndpoint := newS3StoreWithClient(newFakeS3(), S3Config{Bucket: "media", Endpoint: "http://minio:9000/"})
	assert.Equal(t, "http://minio:9000/media/k.png", withEndpoint.URL("k.png"))

	withCDN := newS3StoreWithClient(newFakeS3(), S3Config{Bucket: "media", Region: "us-east-1", PublicBaseURL: "https://cdn.example.org"})
	assert.Equal(t, "https://cdn.example.org/k.png", withCDN.URL("k.png"))
}

func TestS3Store_Delete(t *testing.T) {
	client := newFakeS3()
	store := newS3StoreWithClient(client, S3Config{Bucket: "b", Region: "r"})
	client.objects["k.png"] = pngHeader

	require.NoError(t, store.Delete(context.Background(), "k.png"))
	assert.NotContains(t, client.objects, "k.png")

	client.deleteErr = awserr.New(s3.ErrCodeNoSuchKey, "gone", nil)
	assert.NoError(t, store.Delete(context.Background(), "k.png"))

	client.deleteErr = errors.New("network down")
	err := store.Delete(context.Background(), "k.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}

func TestS3Store_RejectsInvalidKey(t *testing.T) {
	store := newS3StoreWithClient(newFakeS3(), S3Config{Bucket: "b", Region: "r"})
	_, err := store.Put(context.Background(), "../x.png", "image/png", pngHeader)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
