package config

import "github.com/golang/geo/r3"

// MappingConfig holds the mapping pipeline's recognized tunables.
type MappingConfig struct {
	LineResolution  float64
	PlaneResolution float64
	UseColor        bool
	PCDSavePath     string
	// ProcessInterval is the mapping worker's idle-poll backoff, in
	// seconds.
	ProcessInterval float64

	MappingExtrinsicT r3.Vector
	MappingExtrinsicR []float64 // 3x3 row-major rotation

	ColorExtrinsicT r3.Vector
	ColorExtrinsicR []float64
	CameraMatrix    []float64 // 3x3 row-major intrinsics
	DistortionCoeff []float64 // k1,k2,p1,p2,k3
	MaxTimeDiff     float64
}

// DefaultMappingConfig holds the defaults applied for any attribute left
// unset.
var DefaultMappingConfig = MappingConfig{
	LineResolution:  0.4,
	PlaneResolution: 0.8,
	UseColor:        false,
	ProcessInterval: 0.002,
	MaxTimeDiff:     0.05,
}

// Load decodes a MappingConfig out of an AttributeMap, applying
// DefaultMappingConfig for any attribute left unset.
func Load(am AttributeMap) (MappingConfig, error) {
	cfg := DefaultMappingConfig

	var err error
	if cfg.LineResolution, err = am.Float64("mapping_line_resolution", cfg.LineResolution); err != nil {
		return cfg, err
	}
	if cfg.PlaneResolution, err = am.Float64("mapping_plane_resolution", cfg.PlaneResolution); err != nil {
		return cfg, err
	}
	if cfg.UseColor, err = am.Bool("use_color", cfg.UseColor); err != nil {
		return cfg, err
	}
	if cfg.PCDSavePath, err = am.String("pcd_save_path", cfg.PCDSavePath); err != nil {
		return cfg, err
	}
	if cfg.ProcessInterval, err = am.Float64("mapping/process_interval", cfg.ProcessInterval); err != nil {
		return cfg, err
	}
	if cfg.MaxTimeDiff, err = am.Float64("color_mapping/max_time_diff", cfg.MaxTimeDiff); err != nil {
		return cfg, err
	}

	mT, err := am.Float64Slice("mapping/extrinsic_T")
	if err != nil {
		return cfg, err
	}
	if len(mT) == 3 {
		cfg.MappingExtrinsicT = r3.Vector{X: mT[0], Y: mT[1], Z: mT[2]}
	}
	if cfg.MappingExtrinsicR, err = am.Float64Slice("mapping/extrinsic_R"); err != nil {
		return cfg, err
	}

	cT, err := am.Float64Slice("color_mapping/extrinsic_T")
	if err != nil {
		return cfg, err
	}
	if len(cT) == 3 {
		cfg.ColorExtrinsicT = r3.Vector{X: cT[0], Y: cT[1], Z: cT[2]}
	}
	if cfg.ColorExtrinsicR, err = am.Float64Slice("color_mapping/extrinsic_R"); err != nil {
		return cfg, err
	}
	if cfg.CameraMatrix, err = am.Float64Slice("color_mapping/K_camera"); err != nil {
		return cfg, err
	}
	if cfg.DistortionCoeff, err = am.Float64Slice("color_mapping/D_camera"); err != nil {
		return cfg, err
	}

	return cfg, nil
}
