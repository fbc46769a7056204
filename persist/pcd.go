package persist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
)

// PCDFormat selects the PCD DATA section encoding.
type PCDFormat int

const (
	PCDAscii PCDFormat = iota
	PCDBinary
)

// WritePCD writes cloud as a PCD v.7 file with fields "x y z intensity".
func WritePCD(cloud *pointcloud.Cloud, w io.Writer, format PCDFormat) error {
	bw := bufio.NewWriter(w)
	points := cloud.Points()

	fmt.Fprintf(bw, "VERSION .7\n")
	fmt.Fprintf(bw, "FIELDS x y z intensity\n")
	fmt.Fprintf(bw, "SIZE 4 4 4 4\n")
	fmt.Fprintf(bw, "TYPE F F F F\n")
	fmt.Fprintf(bw, "COUNT 1 1 1 1\n")
	fmt.Fprintf(bw, "WIDTH %d\n", len(points))
	fmt.Fprintf(bw, "HEIGHT 1\n")
	fmt.Fprintf(bw, "VIEWPOINT 0 0 0 1 0 0 0\n")
	fmt.Fprintf(bw, "POINTS %d\n", len(points))

	switch format {
	case PCDBinary:
		fmt.Fprintf(bw, "DATA binary\n")
		rec := make([]byte, 16)
		for _, p := range points {
			binary.LittleEndian.PutUint32(rec[0:4], math.Float32bits(float32(p.P.X)))
			binary.LittleEndian.PutUint32(rec[4:8], math.Float32bits(float32(p.P.Y)))
			binary.LittleEndian.PutUint32(rec[8:12], math.Float32bits(float32(p.P.Z)))
			binary.LittleEndian.PutUint32(rec[12:16], math.Float32bits(float32(p.D.Intensity)))
			if _, err := bw.Write(rec); err != nil {
				return err
			}
		}
	default:
		fmt.Fprintf(bw, "DATA ascii\n")
		for _, p := range points {
			fmt.Fprintf(bw, "%f %f %f %f\n", p.P.X, p.P.Y, p.P.Z, p.D.Intensity)
		}
	}
	return bw.Flush()
}
