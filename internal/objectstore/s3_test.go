package objectstore

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Options{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("got %v, want ErrNotConfigured", err)
	}
}

func TestSignUploadPathStyle(t *testing.T) {
	s, err := New(context.Background(), Options{
		Bucket:    "reportes",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		URLTTL:    5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	up, err := s.SignUpload(context.Background(), "reports/abc-foto.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("SignUpload: %v", err)
	}
	if up.Bucket != "reportes" || up.Path != "reports/abc-foto.jpg" {
		t.Errorf("upload = %+v", up)
	}

	u, err := url.Parse(up.SignedURL)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	if u.Host != "127.0.0.1:9000" {
		t.Errorf("host = %q", u.Host)
	}
	if u.Path != "/reportes/reports/abc-foto.jpg" {
		t.Errorf("path = %q, want path-style bucket/key", u.Path)
	}
	q := u.Query()
	if q.Get("X-Amz-Signature") == "" {
		t.Error("signed url has no signature")
	}
	if q.Get("X-Amz-Expires") != "300" {
		t.Errorf("X-Amz-Expires = %q, want 300", q.Get("X-Amz-Expires"))
	}
	if up.PublicURL != "http://127.0.0.1:9000/reportes/reports/abc-foto.jpg" {
		t.Errorf("PublicURL = %q", up.PublicURL)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "public base",
			opts: Options{Bucket: "b", PublicBaseURL: "https://cdn.bachejoa.mx/photos/"},
			want: "https://cdn.bachejoa.mx/photos/reports/x%20y.png",
		},
		{
			name: "aws virtual host",
			opts: Options{Bucket: "b", Region: "us-west-2"},
			want: "https://b.s3.us-west-2.amazonaws.com/reports/x%20y.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &S3Signer{opts: tt.opts}
			if got := s.PublicURL("reports/x y.png"); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

type fakePresigner struct{ err error }

func (f fakePresigner) PresignPutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + *in.Key, Method: "PUT"}, nil
}

func TestSignUploadPresignError(t *testing.T) {
	s := &S3Signer{
		opts:      Options{Bucket: "b", URLTTL: time.Minute},
		presigner: fakePresigner{err: errors.New("presign-put-fail")},
		now:       time.Now,
	}
	_, err := s.SignUpload(context.Background(), "reports/k", "image/png")
	if err == nil || !strings.Contains(err.Error(), "presign-put-fail") {
		t.Fatalf("want presign-put-fail, got %v", err)
	}

	s.presigner = fakePresigner{}
	up, err := s.SignUpload(context.Background(), "reports/k", "image/png")
	if err != nil {
		t.Fatalf("SignUpload: %v", err)
	}
	if up.SignedURL != "https://signed.example/reports/k" {
		t.Errorf("SignedURL = %q", up.SignedURL)
	}
}
