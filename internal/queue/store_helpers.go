package queue

import (
	"database/sql"
	"errors"
	"time"
)

const taskColumns = "id, command, options_json, status, result_path, error_message, progress, progress_message, created_at, updated_at"

const fileColumns = "f.id, f.file_path, f.file_name, f.mime_type, f.created_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id              string
		command         string
		optionsRaw      sql.NullString
		statusStr       string
		resultPath      sql.NullString
		errorMessage    sql.NullString
		progress        sql.NullFloat64
		progressMessage sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&command,
		&optionsRaw,
		&statusStr,
		&resultPath,
		&errorMessage,
		&progress,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:              id,
		Command:         command,
		Options:         decodeOptions(optionsRaw.String),
		Status:          Status(statusStr),
		ResultPath:      resultPath.String,
		ErrorMessage:    errorMessage.String,
		Progress:        progress.Float64,
		ProgressMessage: progressMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

func scanFile(scanner interface{ Scan(dest ...any) error }) (File, error) {
	var (
		file       File
		mimeType   sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&file.ID, &file.FilePath, &file.FileName, &mimeType, &createdRaw); err != nil {
		return File{}, err
	}
	file.MimeType = mimeType.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		file.CreatedAt = created
	}
	return file, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timestampLayout keeps a fixed-width fraction so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
