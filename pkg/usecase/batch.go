package usecase

// BatchItemStatus reports one item's outcome within a batch
type BatchItemStatus struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchResult aggregates per-item outcomes. A batch never aborts on one
// item's failure; failed items are reported individually while successful
// ones are still counted.
type BatchResult struct {
	Processed int               `json:"processed"`
	Success   int               `json:"success"`
	Failed    int               `json:"failed"`
	Items     []BatchItemStatus `json:"items"`
}

func (r *BatchResult) record(id string, err error) {
	status := BatchItemStatus{ID: id, Success: err == nil}
	if err != nil {
		status.Error = err.Error()
		r.Failed++
	} else {
		r.Success++
	}
	r.Processed++
	r.Items = append(r.Items, status)
}
