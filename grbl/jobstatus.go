package grbl

type JobStatus struct {
	Name   string
	Valid  bool
	Active bool
	Done   bool

	Read         int
	ReadComplete bool
	Sent         int
	Completed    int

	Err error
}

// Progress is the fraction of read lines that have been acknowledged.
func (s JobStatus) Progress() float64 {
	if s.Read == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Read)
}
