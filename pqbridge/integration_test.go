//go:build integration

package pqbridge_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawarehouse/dw-parquet-go/internal/testutil"
	"github.com/datawarehouse/dw-parquet-go/pqbridge"
)

// TestIntegrationBridge runs the bridge against S3 in LocalStack.
func TestIntegrationBridge(t *testing.T) {
	ls := testutil.StartLocalStack(t)
	ctx := context.Background()

	bucket := fmt.Sprintf("pqbridge-it-%d", time.Now().UnixNano())
	require.NoError(t, ls.CreateBucket(ctx, bucket))

	b, err := pqbridge.New(ctx, pqbridge.Config{
		Bucket:       bucket,
		Endpoint:     ls.Endpoint,
		Region:       ls.Region,
		AccessKey:    "test",
		SecretKey:    "test",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		src := testutil.SampleTable(t, []int64{1, 2, 3}, []string{"a", "b", "c"}, []float64{1, 2, 3})
		require.NoError(t, b.UploadTable(ctx, "rt/data.parquet", src))

		got, err := b.DownloadTable(ctx, "rt/data.parquet")
		require.NoError(t, err)
		defer got.Release()

		assert.Equal(t, testutil.ColumnNames(src), testutil.ColumnNames(got))
		assert.Equal(t, testutil.ColumnValues(src, "name"), testutil.ColumnValues(got, "name"))
	})

	t.Run("list", func(t *testing.T) {
		api, err := ls.Client(ctx)
		require.NoError(t, err)
		raw := pqbridge.NewS3ClientWithAPI(api)
		for _, key := range []string{"ls/a.parquet", "ls/b.txt", "ls/dir/c.parquet"} {
			_, err := raw.PutObject(ctx, bucket, key, nil)
			require.NoError(t, err)
		}

		keys, err := b.ListTableKeys(ctx, "ls/")
		require.NoError(t, err)
		assert.Equal(t, []string{"ls/a.parquet", "ls/dir/c.parquet"}, keys)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := b.DownloadTable(ctx, "nope.parquet")
		assert.True(t, pqbridge.IsNotFound(err), "got %v", err)

		_, err = b.Stat(ctx, "nope.parquet")
		assert.True(t, pqbridge.IsNotFound(err), "got %v", err)
	})
}
