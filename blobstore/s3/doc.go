// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion("eu-central-1"))
//	if err != nil {
//	    return err
//	}
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "versebase/")
//	err = db.Backup(ctx, store)
//
// # Features
//
//   - Multipart uploads for large archives
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
