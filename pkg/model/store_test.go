package model

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type apiError struct{ code string }

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// fakeBucket is an in-memory S3 backend keyed by object key.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (b *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (b *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if b.putErr != nil {
		return nil, b.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (b *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (b *fakeBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3StoreArtifact(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket()
	store := NewS3Store(bucket, "models", "pelohub")

	m := NewLinear(ArchCNNSTFT, [3]int{174, 27, 1}, []string{"control", "dysarthric"})
	if err := WriteArtifact(ctx, store, m.Artifact("run-s3")); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if _, ok := bucket.objects["pelohub/cnn_stft_best.msgpack"]; !ok {
		t.Fatalf("objects = %v", bucket.objects)
	}

	a, err := ReadArtifact(ctx, store, ArchCNNSTFT)
	if err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	if a.RunID != "run-s3" || len(a.Weights) != 174*27*2 {
		t.Errorf("artifact run %q weights %d", a.RunID, len(a.Weights))
	}

	if _, err := ReadArtifact(ctx, store, ArchNASNetMobile); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("err = %v, want ErrModelNotFound", err)
	}
}

func TestS3StoreNotFoundMapping(t *testing.T) {
	ctx := context.Background()
	store := NewS3Store(newFakeBucket(), "models", "")

	if _, err := store.Read(ctx, "ghost"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read err = %v", err)
	}
	if ok, err := store.Exists(ctx, "ghost"); ok || err != nil {
		t.Errorf("Exists = %v, %v", ok, err)
	}
	if err := store.Delete(ctx, "ghost"); err != nil {
		t.Errorf("Delete = %v", err)
	}
}

func TestS3StoreUploadError(t *testing.T) {
	bucket := newFakeBucket()
	bucket.putErr = errors.New("access denied")
	store := NewS3Store(bucket, "models", "")

	w, err := store.Write(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("data"))
	if err := w.Close(); err == nil || err.Error() != "access denied" {
		t.Fatalf("Close err = %v", err)
	}
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(S3Config{Bucket: "b", Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s"})
	if c == nil {
		t.Fatal("nil client")
	}
	var _ S3Client = c
}

func TestLocalStoreWriteIsAtomic(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	w, err := store.Write(ctx, "sub/a.bin")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("partial"))
	if ok, _ := store.Exists(ctx, "sub/a.bin"); ok {
		t.Fatal("artifact visible before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Exists(ctx, "sub/a.bin"); !ok {
		t.Fatal("artifact missing after Close")
	}
	if err := store.Delete(ctx, "sub/a.bin"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "sub/a.bin"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}
