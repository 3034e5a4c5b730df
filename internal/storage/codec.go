package storage

import (
	"encoding/json"
	"errors"

	"fugo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp fills the version fields of a record before it is encoded.
func Stamp(record model.RunRecord) model.RunRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodeRun(record model.RunRecord) ([]byte, error) {
	return json.Marshal(Stamp(record))
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var record model.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return record, nil
}

func EncodeGenerationStats(generations []model.GenerationStats) ([]byte, error) {
	return json.Marshal(generations)
}

func DecodeGenerationStats(data []byte) ([]model.GenerationStats, error) {
	var generations []model.GenerationStats
	if err := json.Unmarshal(data, &generations); err != nil {
		return nil, err
	}
	return generations, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
