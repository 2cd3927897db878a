// Package backup archives the catalog database and its config file as a
// tar.gz, and restores them.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/HerbHall/artiscatalog/internal/version"
)

// ManifestName is the archive entry describing the backup.
const ManifestName = "manifest.json"

// maxEntrySize bounds a single restored file.
const maxEntrySize = 1 << 30

// ErrExists is returned by Restore when a target file exists and force is off.
var ErrExists = errors.New("target file exists")

// Manifest records what a backup holds.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Database  string    `json:"database"`
	Config    string    `json:"config,omitempty"`
}

// Backup writes a tar.gz archive holding the SQLite database, the config
// file when configPath names an existing file, and a manifest. The WAL is
// checkpointed first so the copied database file is complete. The archive is
// written to a temporary file and renamed into place.
func Backup(ctx context.Context, dbPath, configPath, outputPath string) (Manifest, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return Manifest{}, fmt.Errorf("database file not found: %w", err)
	}
	if err := checkpointWAL(ctx, dbPath); err != nil {
		return Manifest{}, fmt.Errorf("WAL checkpoint failed: %w", err)
	}

	m := Manifest{
		Version:   version.Short(),
		CreatedAt: time.Now().UTC(),
		Database:  filepath.Base(dbPath),
	}
	files := [][2]string{{dbPath, m.Database}}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			m.Config = filepath.Base(configPath)
			files = append(files, [2]string{configPath, m.Config})
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".artiscatalog-backup-*")
	if err != nil {
		return Manifest{}, fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeArchive(tmp, m, files); err != nil {
		tmp.Close()
		return Manifest{}, err
	}
	if err := tmp.Close(); err != nil {
		return Manifest{}, fmt.Errorf("closing archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return Manifest{}, fmt.Errorf("moving archive into place: %w", err)
	}
	return m, nil
}

func writeArchive(w io.Writer, m Manifest, files [][2]string) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    ManifestName,
		Mode:    0o644,
		Size:    int64(len(manifest)),
		ModTime: m.CreatedAt,
	}); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if _, err := tw.Write(manifest); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	for _, f := range files {
		if err := addFileToTar(tw, f[0], f[1]); err != nil {
			return fmt.Errorf("adding %s to archive: %w", f[1], err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("finishing gzip: %w", err)
	}
	return nil
}

// checkpointWAL runs a TRUNCATE checkpoint so pending WAL pages land in the
// main database file.
func checkpointWAL(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// Restore extracts a backup archive into dataDir and returns its manifest.
// Existing files are only replaced when force is set. Entries must be plain
// files at the archive root.
func Restore(ctx context.Context, archivePath, dataDir string, force bool) (Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Manifest{}, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading gzip: %w", err)
	}
	defer gr.Close()

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return Manifest{}, fmt.Errorf("creating data dir: %w", err)
	}

	var (
		m        Manifest
		restored []string
	)
	tr := tar.NewReader(gr)
	for {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Manifest{}, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || filepath.Base(hdr.Name) != hdr.Name || hdr.Name == ".." {
			return Manifest{}, fmt.Errorf("unexpected archive entry %q", hdr.Name)
		}
		if hdr.Size > maxEntrySize {
			return Manifest{}, fmt.Errorf("archive entry %q too large", hdr.Name)
		}

		if hdr.Name == ManifestName {
			if err := json.NewDecoder(io.LimitReader(tr, 1<<20)).Decode(&m); err != nil {
				return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
			}
			continue
		}

		target := filepath.Join(dataDir, hdr.Name)
		if !force {
			if _, err := os.Stat(target); err == nil {
				return Manifest{}, fmt.Errorf("%s: %w (use --force to overwrite)", target, ErrExists)
			}
		}
		if err := writeFile(target, tr, hdr.Size); err != nil {
			return Manifest{}, fmt.Errorf("restoring %s: %w", hdr.Name, err)
		}
		restored = append(restored, hdr.Name)
	}

	if m.Database == "" {
		return Manifest{}, errors.New("archive has no manifest")
	}
	for _, name := range []string{m.Database, m.Config} {
		if name != "" && !slices.Contains(restored, name) {
			return Manifest{}, fmt.Errorf("archive is missing %s", name)
		}
	}
	return m, nil
}

func writeFile(target string, r io.Reader, size int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".restore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.CopyN(tmp, r, size); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
