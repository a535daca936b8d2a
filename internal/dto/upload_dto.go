package dto

// UploadResponse returns the hosted URL of a single uploaded image.
type UploadResponse struct {
	ImageURL string `json:"imageUrl"`
}

// PostImagesResponse returns the hosted URLs of a batch upload.
type PostImagesResponse struct {
	Images []string `json:"images"`
}
