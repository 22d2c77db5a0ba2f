package ai

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"
)

// DecodeBase64 strips an optional data-URI header before decoding
func DecodeBase64(s string) ([]byte, error) {
	if i := strings.Index(s, ","); i >= 0 {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func DecodeImage(s string) (image.Image, error) {
	data, err := DecodeBase64(s)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// DecodeImages keeps the provider order
func DecodeImages(files []string) ([]image.Image, error) {
	images := make([]image.Image, 0, len(files))
	for i, f := range files {
		img, err := DecodeImage(f)
		if err != nil {
			return nil, &Error{Kind: KindDecode, Op: "image " + strconv.Itoa(i+1), Err: err}
		}
		images = append(images, img)
	}
	return images, nil
}

// SaveImages writes 1.png, 2.png, ... into dir, creating it if needed
func SaveImages(images []image.Image, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	paths := make([]string, 0, len(images))
	for i, img := range images {
		path := filepath.Join(dir, strconv.Itoa(i+1)+".png")
		if err := savePNG(path, img); err != nil {
			return paths, fmt.Errorf("saving %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func savePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
