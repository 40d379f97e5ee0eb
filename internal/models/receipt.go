package models

// ReceiptFileName is the fixed name of the receipt inside a task directory.
const ReceiptFileName = "receipt.yaml"

// Receipt is the durable record of one collection unit's outcome.
//
// Fields are serialized in declaration order so two writes of the same
// receipt produce byte-identical files.
type Receipt struct {
	Name     string `yaml:"name" json:"name"`
	TaskDir  string `yaml:"task_dir" json:"task_dir"`
	Error    string `yaml:"error,omitempty" json:"error,omitempty"`
	ReportOn bool   `yaml:"report_on" json:"report_on"`
}

// Failed reports whether the unit recorded an error.
func (r Receipt) Failed() bool {
	return r.Error != ""
}

// ReportEntry pairs a reportable receipt with the output files found in its
// task directory at aggregation time.
type ReportEntry struct {
	Receipt Receipt
	Files   []string
}
