package writer

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"krakenflow/models"
)

// ParquetRecord is one row of the written files.
type ParquetRecord struct {
	Exchange     string  `parquet:"name=exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	Kind         string  `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8"`
	Channel      string  `parquet:"name=channel, type=BYTE_ARRAY, convertedtype=UTF8"`
	ChannelID    int64   `parquet:"name=channel_id, type=INT64"`
	Pair         string  `parquet:"name=pair, type=BYTE_ARRAY, convertedtype=UTF8"`
	Side         string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price        float64 `parquet:"name=price, type=DOUBLE"`
	Volume       float64 `parquet:"name=volume, type=DOUBLE"`
	Timestamp    int64   `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	UpdateType   string  `parquet:"name=update_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderType    string  `parquet:"name=order_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Misc         string  `parquet:"name=misc, type=BYTE_ARRAY, convertedtype=UTF8"`
	Checksum     string  `parquet:"name=checksum, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level        int32   `parquet:"name=level, type=INT32"`
	ReceivedTime int64   `parquet:"name=received_time, type=INT64, convertedtype=TIMESTAMP_MICROS"`
}

func toRecord(exchange string, e models.NormMessage) ParquetRecord {
	return ParquetRecord{
		Exchange:     exchange,
		Kind:         e.Kind,
		Channel:      e.Channel,
		ChannelID:    e.ChannelID,
		Pair:         e.Pair,
		Side:         e.Side,
		Price:        e.Price,
		Volume:       e.Volume,
		Timestamp:    e.Timestamp,
		UpdateType:   e.UpdateType,
		OrderType:    e.OrderType,
		Misc:         e.Misc,
		Checksum:     e.Checksum,
		Level:        int32(e.Level),
		ReceivedTime: e.ReceivedTime,
	}
}

// memoryFile is a write-only source.ParquetFile backed by a buffer.
type memoryFile struct {
	buffer *bytes.Buffer
}

func newMemoryFile() *memoryFile {
	return &memoryFile{buffer: &bytes.Buffer{}}
}

func (m *memoryFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memoryFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memoryFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memoryFile) Read(b []byte) (int, error)                { return m.buffer.Read(b) }
func (m *memoryFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memoryFile) Close() error                              { return nil }
func (m *memoryFile) Bytes() []byte                             { return m.buffer.Bytes() }

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "zstd":
		return parquet.CompressionCodec_ZSTD
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

// encodeParquet renders entries as an in-memory parquet file. Rows without a
// side or timestamp are skipped.
func encodeParquet(exchange string, entries []models.NormMessage, compression string, rowGroupSize, pageSize int64) ([]byte, int, error) {
	fw := newMemoryFile()
	pw, err := writer.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)
	if rowGroupSize > 0 {
		pw.RowGroupSize = rowGroupSize
	}
	if pageSize > 0 {
		pw.PageSize = pageSize
	}

	written := 0
	for _, e := range entries {
		if e.Side == "" || e.Timestamp == 0 {
			continue
		}
		if err := pw.Write(toRecord(exchange, e)); err != nil {
			pw.WriteStop()
			return nil, 0, fmt.Errorf("failed to write parquet record: %w", err)
		}
		written++
	}

	if err := pw.WriteStop(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return fw.Bytes(), written, nil
}
