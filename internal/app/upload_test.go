package app

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestUploadImage_RejectsNonImageBeforeRemoteWrite(t *testing.T) {
	storage := &stubStorage{}
	svc := newTestService(newStubRepo(), &stubPayments{}, storage)

	_, err := svc.UploadImage(context.Background(), []byte("%PDF-1.4"), "application/pdf", "doc.pdf")
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
	if storage.puts != 0 {
		t.Fatalf("expected no remote writes, got %d", storage.puts)
	}
}

func TestUploadImage_SizeBoundary(t *testing.T) {
	storage := &stubStorage{}
	svc := newTestService(newStubRepo(), &stubPayments{}, storage)

	atLimit := make([]byte, MaxUploadBytes)
	result, err := svc.UploadImage(context.Background(), atLimit, "image/png", "big.png")
	if err != nil {
		t.Fatalf("upload at exactly the size limit should succeed, got %v", err)
	}
	if result.Size != MaxUploadBytes {
		t.Fatalf("expected size %d, got %d", MaxUploadBytes, result.Size)
	}

	overLimit := make([]byte, MaxUploadBytes+1)
	_, err = svc.UploadImage(context.Background(), overLimit, "image/png", "bigger.png")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge one byte over the limit, got %v", err)
	}
	if storage.puts != 1 {
		t.Fatalf("expected exactly one remote write, got %d", storage.puts)
	}
}

func TestUploadImage_EmptyPayload(t *testing.T) {
	svc := newTestService(newStubRepo(), &stubPayments{}, &stubStorage{})

	if _, err := svc.UploadImage(context.Background(), nil, "image/png", "empty.png"); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestUploadImage_KeyKeepsOriginalExtension(t *testing.T) {
	storage := &stubStorage{}
	svc := newTestService(newStubRepo(), &stubPayments{}, storage)

	result, err := svc.UploadImage(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "holiday photo.JPEG")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(storage.lastKey, ".JPEG") {
		t.Fatalf("expected key to keep the original extension, got %q", storage.lastKey)
	}
	if result.FileName != storage.lastKey {
		t.Fatalf("expected reported file name %q to match stored key %q", result.FileName, storage.lastKey)
	}
	if result.ImageURL != "https://stickers.example.com/"+storage.lastKey {
		t.Fatalf("unexpected image url %q", result.ImageURL)
	}
}

func TestUploadImage_NoExtensionFallsBackToBareUUID(t *testing.T) {
	storage := &stubStorage{}
	svc := newTestService(newStubRepo(), &stubPayments{}, storage)

	if _, err := svc.UploadImage(context.Background(), []byte{0x89, 0x50}, "image/png", "clipboard"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(storage.lastKey, ".") {
		t.Fatalf("expected bare uuid key for extension-less upload, got %q", storage.lastKey)
	}
}

func TestUploadImage_StorageFailureSurfaces(t *testing.T) {
	storage := &stubStorage{err: errors.New("bucket unreachable")}
	svc := newTestService(newStubRepo(), &stubPayments{}, storage)

	_, err := svc.UploadImage(context.Background(), []byte{0x89, 0x50}, "image/png", "a.png")
	if err == nil || !strings.Contains(err.Error(), "bucket unreachable") {
		t.Fatalf("expected storage error to surface, got %v", err)
	}
}

func TestUploadImage_UnconfiguredStorage(t *testing.T) {
	svc := newTestService(newStubRepo(), &stubPayments{}, nil)

	if _, err := svc.UploadImage(context.Background(), []byte{0x89, 0x50}, "image/png", "a.png"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
