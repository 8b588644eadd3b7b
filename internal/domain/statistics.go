package domain

// SizeUsageDataset is one zone's series, aligned to SizeUsage.Labels.
type SizeUsageDataset struct {
	Label  int     `json:"label"`
	Values []int64 `json:"values"`
}

// SizeUsage is the per-zone storage series of a project.
type SizeUsage struct {
	Labels   []string           `json:"labels"`
	Datasets []SizeUsageDataset `json:"datasets"`
}

// SizeStatistics totals the files of a project.
type SizeStatistics struct {
	Count       int64         `json:"count"`
	Size        int64         `json:"size"`
	CountByZone map[int]int64 `json:"count_by_zone"`
}

// TransferStatistics counts a day's uploads and downloads.
type TransferStatistics struct {
	Uploaded   int64 `json:"uploaded"`
	Downloaded int64 `json:"downloaded"`
}
