package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/vango-dev/paramstate/pkg/storage"
)

type fakeS3 struct {
	objects map[string][]byte
	buckets map[string]bool
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), buckets: make(map[string]bool)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.buckets[aws.ToString(in.Bucket)] = true
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestStoreRoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := New(fake, "params-bucket", "params/")

	if _, ok, err := store.GetItem("name"); ok || err != nil {
		t.Fatalf("GetItem on empty bucket = ok:%v err:%v", ok, err)
	}

	if err := store.SetItem("name", `"xyz"`); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.objects["params/name"]; !ok {
		t.Error("object not stored under prefix")
	}
	if !fake.buckets["params-bucket"] {
		t.Error("object not stored in configured bucket")
	}

	v, ok, err := store.GetItem("name")
	if err != nil || !ok || v != `"xyz"` {
		t.Fatalf("GetItem = %q, %v, %v", v, ok, err)
	}

	if err := store.RemoveItem("name"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.GetItem("name"); ok {
		t.Error("item still present after remove")
	}
}

func TestStoreErrors(t *testing.T) {
	fake := newFakeS3()
	fake.err = errors.New("access denied")
	store := New(fake, "b", "")

	if _, _, err := store.GetItem("k"); err == nil {
		t.Error("expected GetItem error")
	}
	if err := store.SetItem("k", "v"); err == nil {
		t.Error("expected SetItem error")
	}
	if err := store.RemoveItem("k"); err == nil {
		t.Error("expected RemoveItem error")
	}
	if err := store.SetItem("", "v"); !errors.Is(err, storage.ErrEmptyKey) {
		t.Errorf("err = %v, want ErrEmptyKey", err)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&types.NoSuchKey{}) {
		t.Error("NoSuchKey should be not found")
	}
	if !isNotFound(&types.NotFound{}) {
		t.Error("NotFound should be not found")
	}
	if isNotFound(errors.New("boom")) {
		t.Error("plain error should not be not found")
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(ClientOptions{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	opts := client.Options()
	if opts.Region != "us-east-1" || !opts.UsePathStyle {
		t.Errorf("options not applied: %+v", opts)
	}
	if aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("BaseEndpoint = %q", aws.ToString(opts.BaseEndpoint))
	}
	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "key" {
		t.Errorf("credentials = %+v, %v", creds, err)
	}
}
