package helpers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const PropertyFolder = "properties"

// UploadImages uploads each file (a path, URL or io.Reader) and returns
// the secure URLs in order.
func UploadImages(ctx context.Context, cld *cloudinary.Cloudinary, files []interface{}, folder string) ([]string, error) {
	urls := make([]string, 0, len(files))

	for i, file := range files {
		if file == nil {
			continue
		}
		uploadResult, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
			Folder: folder,
			Tags:   []string{"nestly"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload image %d: %w", i, err)
		}
		if uploadResult.Error.Message != "" {
			return nil, fmt.Errorf("failed to upload image %d: %s", i, uploadResult.Error.Message)
		}

		slog.Debug("image uploaded", "public_id", uploadResult.PublicID, "folder", folder)
		urls = append(urls, uploadResult.SecureURL)
	}

	return urls, nil
}

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cld *cloudinary.Cloudinary) *CloudinaryUploader {
	return &CloudinaryUploader{cld: cld, folder: PropertyFolder}
}

func (u *CloudinaryUploader) UploadImages(ctx context.Context, files []interface{}) ([]string, error) {
	return UploadImages(ctx, u.cld, files, u.folder)
}
