package schemactx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/askdb/askdb/internal/storage"
)

const maxFragmentBytes = 1 << 20

// ObjectSource reads fragments from an object store bucket prefix, keeping
// only keys that end with Suffix.
type ObjectSource struct {
	Store  storage.ObjectLister
	Prefix string
	Suffix string
}

func (o ObjectSource) List(ctx context.Context) ([]string, error) {
	if o.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	objects, err := o.Store.List(ctx, o.Prefix)
	if err != nil {
		return nil, fmt.Errorf("list schema objects: %w", err)
	}
	names := make([]string, 0, len(objects))
	for _, object := range objects {
		if o.Suffix != "" && !strings.HasSuffix(object.Key, o.Suffix) {
			continue
		}
		names = append(names, object.Key)
	}
	return names, nil
}

func (o ObjectSource) Read(ctx context.Context, name string) ([]byte, error) {
	reader, err := o.Store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get schema object: %w", err)
	}
	defer func() { _ = reader.Close() }()

	body, err := io.ReadAll(io.LimitReader(reader, maxFragmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read schema object: %w", err)
	}
	if len(body) > maxFragmentBytes {
		return nil, fmt.Errorf("schema object %q exceeds %d bytes", name, maxFragmentBytes)
	}
	return body, nil
}
