package reliability

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

const (
	backupPrefix          = "edgardiff-backup-"
	backupSuffix          = ".tar.gz"
	backupTimestampLayout = "2006-01-02-150405"
	metadataFile          = "backup-metadata.json"
	minBackupsToKeep      = 3
)

// BackupMetadata describes the contents of a backup archive
type BackupMetadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Files     []FileMetadata `json:"files"`
}

// FileMetadata describes one file in a backup archive
type FileMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	Checksum  string `json:"checksum"`
	SizeBytes int64  `json:"size_bytes"`
}

// BackupInfo describes a backup stored in the bucket
type BackupInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// R2BackupService ships database snapshots and the exported dataset to a bucket
type R2BackupService struct {
	store       ObjectStore
	backups     *BackupService
	stagingDir  string
	datasetPath string
	log         zerolog.Logger
}

// NewR2BackupService creates a backup service staging archives under stagingDir.
// datasetPath is included in each archive when it exists.
func NewR2BackupService(store ObjectStore, backups *BackupService, stagingDir, datasetPath string, log zerolog.Logger) *R2BackupService {
	return &R2BackupService{
		store:       store,
		backups:     backups,
		stagingDir:  stagingDir,
		datasetPath: datasetPath,
		log:         log.With().Str("service", "r2_backup").Logger(),
	}
}

// CreateAndUploadBackup builds an archive of every database plus the dataset and uploads it.
// It returns the archive name.
func (s *R2BackupService) CreateAndUploadBackup(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting R2 backup")
	startTime := time.Now()

	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	staging, err := os.MkdirTemp(s.stagingDir, "r2-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Version:   "1",
	}

	for _, name := range s.backups.DatabaseNames() {
		filename := name + ".db"
		if err := s.backups.BackupDatabase(name, filepath.Join(staging, filename)); err != nil {
			return "", fmt.Errorf("failed to backup %s: %w", name, err)
		}
		fm, err := describeFile(name, staging, filename)
		if err != nil {
			return "", err
		}
		metadata.Files = append(metadata.Files, fm)
	}

	if s.datasetPath != "" {
		if _, err := os.Stat(s.datasetPath); err == nil {
			filename := filepath.Base(s.datasetPath)
			if err := copyFile(s.datasetPath, filepath.Join(staging, filename)); err != nil {
				return "", fmt.Errorf("failed to stage dataset: %w", err)
			}
			fm, err := describeFile("dataset", staging, filename)
			if err != nil {
				return "", err
			}
			metadata.Files = append(metadata.Files, fm)
		}
	}

	if err := writeMetadata(filepath.Join(staging, metadataFile), metadata); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := backupPrefix + time.Now().UTC().Format(backupTimestampLayout) + backupSuffix
	archivePath := filepath.Join(s.stagingDir, archiveName)
	defer os.Remove(archivePath)

	members := []string{metadataFile}
	for _, f := range metadata.Files {
		members = append(members, f.Filename)
	}
	if err := createArchive(archivePath, staging, members); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := s.store.Upload(ctx, archiveName, archiveFile, archiveInfo.Size()); err != nil {
		return "", fmt.Errorf("failed to upload to r2: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int("files", len(metadata.Files)).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("R2 backup completed successfully")

	return archiveName, nil
}

// ListBackups lists the backups in the bucket, newest first
func (s *R2BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list r2 backups: %w", err)
	}

	now := time.Now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, backupPrefix) || !strings.HasSuffix(obj.Key, backupSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(obj.Key, backupPrefix), backupSuffix)
		timestamp, err := time.Parse(backupTimestampLayout, stamp)
		if err != nil {
			s.log.Warn().Str("filename", obj.Key).Msg("Failed to parse timestamp from filename")
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays, always keeping the newest
// three. A retention of zero keeps everything.
func (s *R2BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if retentionDays <= 0 || len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("R2 backup rotation completed")
	return deleted, nil
}

func describeFile(name, dir, filename string) (FileMetadata, error) {
	path := filepath.Join(dir, filename)
	info, err := os.Stat(path)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	checksum, err := calculateChecksum(path)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("failed to calculate checksum for %s: %w", filename, err)
	}
	return FileMetadata{Name: name, Filename: filename, SizeBytes: info.Size(), Checksum: checksum}, nil
}

func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive writes the named files of sourceDir into a tar.gz at archivePath
func createArchive(archivePath, sourceDir string, names []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, name := range names {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		return err
	}
	return archiveFile.Close()
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, file)
	return err
}
