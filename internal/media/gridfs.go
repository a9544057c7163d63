package media

import (
	"context"
	"errors"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps files in a MongoDB GridFS bucket named "media"
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("media"))
	if err != nil {
		return nil, err
	}
	return &GridFSStore{bucket: bucket}, nil
}

func (s *GridFSStore) Save(_ context.Context, name, contentType string, r io.Reader) error {
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	_, err := s.bucket.UploadFromStream(name, r, opts)
	return err
}

func (s *GridFSStore) Open(_ context.Context, name string) (io.ReadCloser, string, error) {
	if !ValidName(name) {
		return nil, "", ErrNotFound
	}
	stream, err := s.bucket.OpenDownloadStreamByName(name)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	contentType := contentTypeOf(name)
	if file := stream.GetFile(); file != nil && file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("content_type").StringValueOK(); ok {
			contentType = ct
		}
	}
	return stream, contentType, nil
}
