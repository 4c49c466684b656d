// Package pqbridge moves Apache Parquet files between an S3-compatible
// object store and in-memory Apache Arrow tables.
//
// The package offers two levels of abstraction:
//
//   - [Bridge] is bound to one bucket and speaks in tables: download a key
//     as an [arrow.Table], upload a table under a key, list the Parquet keys
//     under a prefix.
//
//   - [S3Client] provides the underlying object operations using
//     aws-sdk-go-v2, with the bucket named on every call.
//
// # Quick Start
//
//	import "github.com/datawarehouse/dw-parquet-go/pqbridge"
//
//	bridge, err := pqbridge.New(ctx, pqbridge.Config{
//	    Bucket: "analytics",
//	    Region: "eu-west-1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	keys, err := bridge.ListTableKeys(ctx, "events/2024/")
//
//	tbl, err := bridge.DownloadTable(ctx, keys[0], pqbridge.WithColumns("id", "ts"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tbl.Release()
//
//	err = bridge.UploadTable(ctx, "events/2024/copy.parquet", tbl)
//
// # Credentials
//
// When [Config.AccessKey] and [Config.SecretKey] are empty the default AWS
// credential chain is used: environment variables, shared config files and
// instance or task roles.
//
// # Errors
//
// Every operation returns an [*Error] that wraps exactly one of
// [ErrNotFound], [ErrAccessDenied], [ErrTransport], [ErrDecode],
// [ErrEncode] or [ErrInvalidInput]:
//
//	tbl, err := bridge.DownloadTable(ctx, key)
//	switch {
//	case pqbridge.IsNotFound(err):
//	    // no such object
//	case pqbridge.IsDecode(err):
//	    // object exists but is not valid Parquet
//	case err != nil:
//	    return err
//	}
//
// # Transfers
//
// Objects move whole; there are no ranged or multipart transfers. By default
// they are buffered in memory. [WithScratchDir] spools them through
// uniquely named temporary files instead, which are removed as soon as the
// operation returns.
package pqbridge
