package matrix

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// MaxArchiveMemberBytes bounds the uncompressed size of the .npy member read
// from an .npz archive.
const MaxArchiveMemberBytes = 512 << 20

// ArchiveMemberName is the member written by EncodeArchive.
const ArchiveMemberName = "frame_0.npy"

func decodeNPZ(data []byte) (*Grid, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, decodeErr("invalid npz archive", err)
	}

	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".npy") {
			continue
		}
		if f.UncompressedSize64 > MaxArchiveMemberBytes {
			return nil, decodeErr(fmt.Sprintf("npz member %s exceeds %d bytes", f.Name, MaxArchiveMemberBytes), nil)
		}

		member, err := readMember(f)
		if err != nil {
			return nil, decodeErr("failed to read npz member "+f.Name, err)
		}
		if !bytes.HasPrefix(member, npyMagic) {
			return nil, decodeErr("npz member "+f.Name+" is not an npy array", nil)
		}
		return decodeNPY(member)
	}

	return nil, decodeErr("npz archive holds no .npy member", nil)
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	member, err := io.ReadAll(io.LimitReader(rc, MaxArchiveMemberBytes+1))
	if err != nil {
		return nil, err
	}
	if len(member) > MaxArchiveMemberBytes {
		return nil, fmt.Errorf("member exceeds %d bytes", MaxArchiveMemberBytes)
	}
	return member, nil
}

// EncodeArchive writes g as a single-member .npz archive.
func EncodeArchive(w io.Writer, g *Grid) error {
	zw := zip.NewWriter(w)

	fw, err := zw.Create(ArchiveMemberName)
	if err != nil {
		return fmt.Errorf("failed to create archive member: %w", err)
	}
	if err := Encode(fw, g); err != nil {
		return fmt.Errorf("failed to write archive member: %w", err)
	}

	return zw.Close()
}
