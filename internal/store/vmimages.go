package store

import (
	"context"

	"github.com/nanocl-project/nanocld/internal/model"
)

// CreateVmImage registers a disk image usable as a VM's root volume.
func (s *Store) CreateVmImage(ctx context.Context, img model.VmImage) (model.VmImage, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vm_images (name, kind, path, format, size_actual, size_virtual, parent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, img.Name, img.Kind, img.Path, img.Format, img.SizeActual, img.SizeVirtual, img.Parent, img.CreatedAt)
	if err != nil {
		return model.VmImage{}, err
	}
	return img, nil
}

// GetVmImage reads a VmImage by name.
func (s *Store) GetVmImage(ctx context.Context, name string) (model.VmImage, error) {
	var img model.VmImage
	err := s.db.GetContext(ctx, &img, `SELECT * FROM vm_images WHERE name = $1`, name)
	if err != nil {
		return model.VmImage{}, translateNotFound(err, "VmImage", name)
	}
	return img, nil
}

// ListVmImages returns every registered VM image.
func (s *Store) ListVmImages(ctx context.Context) ([]model.VmImage, error) {
	var out []model.VmImage
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM vm_images ORDER BY created_at ASC`); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteVmImage removes a VmImage row.
func (s *Store) DeleteVmImage(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM vm_images WHERE name = $1`, name)
	return err
}
