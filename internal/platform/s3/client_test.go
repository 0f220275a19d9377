package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient creates a Client backed by a test HTTP server.
// The handler receives real S3 XML-protocol requests.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       "fsn1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		HTTPClient:   &http.Client{Transport: &http.Transport{}},
	})
	return &Client{s3: client, region: "fsn1"}
}

func xmlResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

func errorBody(code string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), "https://fsn1.your-objectstorage.com", "fsn1", "key", "secret")
	require.NoError(t, err)
	assert.Equal(t, "fsn1", client.region)
}

func TestEnsureBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headStatus int
		putStatus  int
		putBody    string
		wantCreate bool
		wantErr    string
	}{
		{name: "exists", headStatus: 200},
		{name: "created", headStatus: 404, putStatus: 200, wantCreate: true},
		{name: "already owned", headStatus: 404, putStatus: 409, putBody: errorBody("BucketAlreadyOwnedByYou"), wantCreate: true},
		{name: "create fails", headStatus: 404, putStatus: 403, putBody: errorBody("AccessDenied"), wantCreate: true, wantErr: "failed to create bucket templates"},
		{name: "head fails", headStatus: 403, wantErr: "failed to check bucket templates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var mu sync.Mutex
			created := false
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.Method {
				case http.MethodHead:
					w.WriteHeader(tt.headStatus)
				case http.MethodPut:
					mu.Lock()
					created = true
					mu.Unlock()
					xmlResponse(w, tt.putStatus, tt.putBody)
				default:
					w.WriteHeader(http.StatusMethodNotAllowed)
				}
			}))

			err := client.EnsureBucket(context.Background(), "templates")
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, tt.wantCreate, created)
		})
	}
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	var (
		mu          sync.Mutex
		body        []byte
		path        string
		contentType string
	)
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body, _ = io.ReadAll(r.Body)
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))

	data := []byte(`{"resources":{}}`)
	require.NoError(t, client.PutObject(context.Background(), "templates", "stacks/c/1.json", "application/json", data))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/templates/stacks/c/1.json", path)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, data, body)
}

func TestPutObject_Error(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xmlResponse(w, 500, errorBody("InternalError"))
	}))

	err := client.PutObject(context.Background(), "templates", "k", "text/plain", []byte("x"))
	require.ErrorContains(t, err, "failed to put object k in bucket templates")
}

func TestGetObject(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/templates/present":
			_, _ = w.Write([]byte("content"))
		case "/templates/missing":
			xmlResponse(w, 404, errorBody("NoSuchKey"))
		default:
			xmlResponse(w, 500, errorBody("InternalError"))
		}
	}))
	ctx := context.Background()

	data, err := client.GetObject(ctx, "templates", "present")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = client.GetObject(ctx, "templates", "missing")
	require.ErrorIs(t, err, ErrObjectNotFound)

	_, err = client.GetObject(ctx, "templates", "broken")
	require.ErrorContains(t, err, "failed to get object broken from bucket templates")
	assert.NotErrorIs(t, err, ErrObjectNotFound)
}

func TestListObjects(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		prefix string
	)
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		prefix = r.URL.Query().Get("prefix")
		mu.Unlock()
		xmlResponse(w, 200, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>templates</Name>
  <KeyCount>2</KeyCount>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>stacks/c/a.json</Key><Size>10</Size></Contents>
  <Contents><Key>stacks/c/b.json</Key><Size>10</Size></Contents>
</ListBucketResult>`)
	}))

	keys, err := client.ListObjects(context.Background(), "templates", "stacks/c/")
	require.NoError(t, err)
	assert.Equal(t, []string{"stacks/c/a.json", "stacks/c/b.json"}, keys)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "stacks/c/", prefix)
}

func TestDeleteObject(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/ok") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		xmlResponse(w, 403, errorBody("AccessDenied"))
	}))

	require.NoError(t, client.DeleteObject(context.Background(), "templates", "ok"))
	require.ErrorContains(t, client.DeleteObject(context.Background(), "templates", "denied"),
		"failed to delete object denied from bucket templates")
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	apiErr := func(code string) error {
		return fmt.Errorf("wrapped: %w", &smithy.GenericAPIError{Code: code})
	}

	assert.False(t, isBucketAlreadyOwnedByYou(nil))
	assert.True(t, isBucketAlreadyOwnedByYou(&s3types.BucketAlreadyOwnedByYou{}))
	assert.True(t, isBucketAlreadyOwnedByYou(&s3types.BucketAlreadyExists{}))
	assert.True(t, isBucketAlreadyOwnedByYou(apiErr("BucketAlreadyExists")))
	assert.False(t, isBucketAlreadyOwnedByYou(apiErr("AccessDenied")))

	assert.False(t, isNotFoundError(nil))
	assert.True(t, isNotFoundError(&s3types.NoSuchBucket{}))
	assert.True(t, isNotFoundError(&s3types.NoSuchKey{}))
	assert.True(t, isNotFoundError(&s3types.NotFound{}))
	assert.True(t, isNotFoundError(apiErr("404")))
	assert.False(t, isNotFoundError(apiErr("InternalError")))
}
