// Package persist writes the accumulated map to disk as LAS or PCD.
package persist

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"

	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
)

const (
	lasHeaderSize   = 227
	lasVersionMajor = 1
	lasVersionMinor = 2
	lasScale        = 0.001 // millimeter resolution

	// Point data record format 1 carries XYZ, intensity and GPS time;
	// format 2 swaps GPS time for RGB. The RGB triple sits after the
	// 20-byte format-0 core.
	lasFormatXYZI   = 1
	lasFormatXYZRGB = 2
	lasRecordSize1  = 28
	lasRecordSize2  = 26
)

// WriteLAS writes cloud to path as LAS 1.2. colors, if non-nil, selects
// point data record format 2 (XYZRGB) and must carry one packed 0xRRGGBB
// entry per point; nil selects format 1 (XYZI). Coordinates are scaled to
// millimeter-resolution integers and the header bounding box spans the
// min/max over all written points.
func WriteLAS(cloud *pointcloud.Cloud, path string, colors []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	points := cloud.Points()

	format := byte(lasFormatXYZI)
	recordSize := lasRecordSize1
	if colors != nil {
		format = lasFormatXYZRGB
		recordSize = lasRecordSize2
	}

	var minX, minY, minZ, maxX, maxY, maxZ float64
	for i, p := range points {
		if i == 0 {
			minX, maxX = p.P.X, p.P.X
			minY, maxY = p.P.Y, p.P.Y
			minZ, maxZ = p.P.Z, p.P.Z
			continue
		}
		minX, maxX = minMax(minX, maxX, p.P.X)
		minY, maxY = minMax(minY, maxY, p.P.Y)
		minZ, maxZ = minMax(minZ, maxZ, p.P.Z)
	}

	header := make([]byte, lasHeaderSize)
	copy(header[0:4], []byte("LASF"))
	header[24] = lasVersionMajor
	header[25] = lasVersionMinor
	binary.LittleEndian.PutUint16(header[94:96], uint16(lasHeaderSize))
	binary.LittleEndian.PutUint32(header[96:100], uint32(lasHeaderSize))
	header[104] = format
	binary.LittleEndian.PutUint16(header[105:107], uint16(recordSize))
	binary.LittleEndian.PutUint32(header[107:111], uint32(len(points)))

	putFloat64(header[131:139], lasScale)
	putFloat64(header[139:147], lasScale)
	putFloat64(header[147:155], lasScale)
	putFloat64(header[179:187], maxX)
	putFloat64(header[187:195], minX)
	putFloat64(header[195:203], maxY)
	putFloat64(header[203:211], minY)
	putFloat64(header[211:219], maxZ)
	putFloat64(header[219:227], minZ)

	if _, err := w.Write(header); err != nil {
		return err
	}

	rec := make([]byte, recordSize)
	for i, p := range points {
		binary.LittleEndian.PutUint32(rec[0:4], uint32(int32(p.P.X/lasScale)))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(int32(p.P.Y/lasScale)))
		binary.LittleEndian.PutUint32(rec[8:12], uint32(int32(p.P.Z/lasScale)))
		binary.LittleEndian.PutUint16(rec[12:14], clampIntensity(p.D.Intensity))

		if format == lasFormatXYZRGB {
			var rgb uint32
			if i < len(colors) {
				rgb = colors[i]
			}
			binary.LittleEndian.PutUint16(rec[20:22], uint16(rgb>>16&0xff)<<8)
			binary.LittleEndian.PutUint16(rec[22:24], uint16(rgb>>8&0xff)<<8)
			binary.LittleEndian.PutUint16(rec[24:26], uint16(rgb&0xff)<<8)
		}

		if _, err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}

func minMax(lo, hi, v float64) (float64, float64) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}

func putFloat64(dst []byte, v float64) {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
}

func clampIntensity(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v)
}
