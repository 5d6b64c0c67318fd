package metrics

const (
	LabelResource = "resource"
	LabelMode     = "mode"
)

const (
	ResourceHeader        = "header"
	ResourceBlockInfo     = "block_info"
	ResourceTrackingMasks = "tracking_masks"
)
