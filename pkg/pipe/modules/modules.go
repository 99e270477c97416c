package modules

import "github.com/polisai/conduit/pkg/pipe"

var (
	_ pipe.Module    = (*Transport)(nil)
	_ pipe.Module    = (*Boost)(nil)
	_ pipe.Module    = (*Extraction)(nil)
	_ pipe.Module    = (*Merger)(nil)
	_ pipe.Module    = (*Splitter)(nil)
	_ pipe.Module    = (*ItemFilter)(nil)
	_ pipe.Module    = (*Insertion)(nil)
	_ pipe.Module    = (*Void)(nil)
	_ pipe.Discarder = (*Void)(nil)
	_ pipe.Module    = (*PipeOnly)(nil)
	_ pipe.Module    = (*BlockConnection)(nil)
	_ pipe.Module    = (*Weathering)(nil)
	_ pipe.Module    = (*Marking)(nil)
	_ pipe.Module    = (*Comparator)(nil)
)
