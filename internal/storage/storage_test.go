package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestImageKey(t *testing.T) {
	at := time.UnixMilli(1767225600123)
	if got := ImageKey("abc", at, 2); got != "abc/1767225600123-2.jpg" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestSupabaseUploadAndDelete(t *testing.T) {
	var gotAuth, gotType, gotPath, gotBody string
	var deleted string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			gotAuth = r.Header.Get("Authorization")
			gotType = r.Header.Get("Content-Type")
			gotPath = r.URL.Path
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	st := NewSupabaseStorage(srv.URL+"/", "service-key", "report-images")
	url, err := st.Upload(context.Background(), "r1/1-0.jpg", []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if gotAuth != "Bearer service-key" || gotType != "image/jpeg" || gotBody != "jpeg" {
		t.Fatalf("unexpected request auth=%q type=%q body=%q", gotAuth, gotType, gotBody)
	}
	if gotPath != "/storage/v1/object/report-images/r1/1-0.jpg" {
		t.Fatalf("unexpected upload path %q", gotPath)
	}
	if url != srv.URL+"/storage/v1/object/public/report-images/r1/1-0.jpg" {
		t.Fatalf("unexpected public url %q", url)
	}

	if err := st.Delete(context.Background(), "r1/1-0.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted != "/storage/v1/object/report-images/r1/1-0.jpg" {
		t.Fatalf("unexpected delete path %q", deleted)
	}
}

func TestSupabaseUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	}))
	defer srv.Close()

	st := NewSupabaseStorage(srv.URL, "k", "missing")
	_, err := st.Upload(context.Background(), "r1/1-0.jpg", []byte("x"), "image/jpeg")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 upload error, got %v", err)
	}
}

type fakeS3 struct {
	put    *s3.PutObjectInput
	del    *s3.DeleteObjectInput
	putErr error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, f.putErr
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.del = in
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	fake := &fakeS3{}
	st := NewS3Storage(fake, "wastewatch-images", "")

	url, err := st.Upload(context.Background(), "r1/5-0.jpg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://wastewatch-images.s3.amazonaws.com/r1/5-0.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	if aws.ToString(fake.put.Key) != "r1/5-0.jpg" || aws.ToInt64(fake.put.ContentLength) != 3 {
		t.Fatalf("unexpected put input %+v", fake.put)
	}

	if err := st.Delete(context.Background(), "r1/5-0.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if aws.ToString(fake.del.Bucket) != "wastewatch-images" {
		t.Fatalf("unexpected delete input %+v", fake.del)
	}

	cdn := NewS3Storage(&fakeS3{}, "b", "https://cdn.example.com/")
	url, _ = cdn.Upload(context.Background(), "k.jpg", nil, "image/jpeg")
	if url != "https://cdn.example.com/k.jpg" {
		t.Fatalf("unexpected cdn url %q", url)
	}

	failing := NewS3Storage(&fakeS3{putErr: errors.New("denied")}, "b", "")
	if _, err := failing.Upload(context.Background(), "k.jpg", nil, "image/jpeg"); err == nil {
		t.Fatalf("expected put error")
	}
}

func TestMemoryBucket(t *testing.T) {
	b := NewMemoryBucket("local")
	url, _ := b.Upload(context.Background(), "r1/1-0.jpg", []byte("x"), "image/jpeg")
	if url != "memory://local/r1/1-0.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	if _, ok := b.Object("r1/1-0.jpg"); !ok {
		t.Fatalf("expected object stored")
	}
	_ = b.Delete(context.Background(), "r1/1-0.jpg")
	if b.Len() != 0 {
		t.Fatalf("expected empty bucket")
	}
}
