package storage

import (
	"fmt"
	"path"
	"strings"
)

// ProductImagePath returns the object key for an uploaded product image:
// products/{productID}/images/{uploadID}{ext}. The extension is taken from fileName.
func ProductImagePath(productID, uploadID, fileName string) (string, error) {
	productID, err := validateSegment("productID", productID)
	if err != nil {
		return "", err
	}
	uploadID, err = validateSegment("uploadID", uploadID)
	if err != nil {
		return "", err
	}
	fileName, err = validateFileName(fileName)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("products/%s/images/%s%s", productID, uploadID, ext), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") || strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	return validateSegment("fileName", value)
}
