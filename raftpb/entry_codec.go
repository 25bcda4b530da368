package raftpb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const entryCodecVersion uint8 = 1

// ErrBadEntryEncoding is returned when decoding malformed bytes.
var ErrBadEntryEncoding = errors.New("raftpb: bad log entry encoding")

// Marshal encodes the entry in big-endian binary layout:
//
//	version | type | index | term | hasChecksum | checksum |
//	peers | oldPeers | learners | oldLearners | data
//
// where each peer list is a count followed by length-prefixed peer strings,
// and data is length-prefixed.
func (e *LogEntry) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(32 + len(e.Data))

	hasChecksum := uint8(0)
	if e.HasChecksum {
		hasChecksum = 1
	}
	hdr := []interface{}{entryCodecVersion, uint8(e.Type), e.ID.Index, e.ID.Term, hasChecksum, e.Checksum}
	for _, v := range hdr {
		if err := binary.Write(buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}

	for _, ps := range [][]PeerID{e.Peers, e.OldPeers, e.Learners, e.OldLearners} {
		if err := binary.Write(buf, binary.BigEndian, uint32(len(ps))); err != nil {
			return nil, err
		}
		for _, p := range ps {
			if err := writeBytes(buf, []byte(p.String())); err != nil {
				return nil, err
			}
		}
	}

	if err := writeBytes(buf, e.Data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes bytes produced by Marshal.
func (e *LogEntry) Unmarshal(b []byte) error {
	r := bytes.NewReader(b)

	var (
		version     uint8
		tp          uint8
		hasChecksum uint8
	)
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return ErrBadEntryEncoding
	}
	if version != entryCodecVersion {
		return fmt.Errorf("raftpb: unknown log entry encoding version %d", version)
	}

	var ent LogEntry
	fields := []interface{}{&tp, &ent.ID.Index, &ent.ID.Term, &hasChecksum, &ent.Checksum}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return ErrBadEntryEncoding
		}
	}
	ent.Type = EntryType(tp)
	ent.HasChecksum = hasChecksum == 1

	for _, ps := range []*[]PeerID{&ent.Peers, &ent.OldPeers, &ent.Learners, &ent.OldLearners} {
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return ErrBadEntryEncoding
		}
		for i := uint32(0); i < n; i++ {
			bts, err := readBytes(r)
			if err != nil {
				return err
			}
			p, err := ParsePeerID(string(bts))
			if err != nil {
				return err
			}
			*ps = append(*ps, p)
		}
	}

	data, err := readBytes(r)
	if err != nil {
		return err
	}
	ent.Data = data

	if r.Len() != 0 {
		return ErrBadEntryEncoding
	}
	*e = ent
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, ErrBadEntryEncoding
	}
	if int64(n) > int64(r.Len()) {
		return nil, ErrBadEntryEncoding
	}
	if n == 0 {
		return nil, nil
	}
	src := make([]byte, int(n))
	if _, err := io.ReadFull(r, src); err != nil {
		return nil, ErrBadEntryEncoding
	}
	return src, nil
}

// LogEntryEncoder writes length-prefixed entries to a stream.
type LogEntryEncoder struct {
	w io.Writer
}

// NewLogEntryEncoder returns a new LogEntryEncoder with given writer.
func NewLogEntryEncoder(w io.Writer) *LogEntryEncoder {
	return &LogEntryEncoder{w: w}
}

// Encode encodes LogEntry to writer.
func (enc *LogEntryEncoder) Encode(e *LogEntry) error {
	bts, err := e.Marshal()
	if err != nil {
		return err
	}
	if err := binary.Write(enc.w, binary.BigEndian, uint64(len(bts))); err != nil {
		return err
	}
	_, err = enc.w.Write(bts)
	return err
}

// LogEntryDecoder reads length-prefixed entries from a stream.
type LogEntryDecoder struct {
	r io.Reader
}

// NewLogEntryDecoder returns a new LogEntryDecoder with given reader.
func NewLogEntryDecoder(r io.Reader) *LogEntryDecoder {
	return &LogEntryDecoder{r: r}
}

// Decode decodes LogEntry from reader.
func (dec *LogEntryDecoder) Decode() (*LogEntry, error) {
	var bNum uint64
	if err := binary.Read(dec.r, binary.BigEndian, &bNum); err != nil {
		return nil, err
	}

	src := make([]byte, int(bNum))
	if _, err := io.ReadFull(dec.r, src); err != nil {
		return nil, err
	}

	e := &LogEntry{}
	err := e.Unmarshal(src)
	return e, err
}
