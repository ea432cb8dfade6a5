package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/alg/rangeset"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/ledger"
)

// Tool name constants.
const (
	ToolNameReserve   = "range_reserve"
	ToolNameCheck     = "range_check"
	ToolNameList      = "range_list"
	ToolNameNeighbors = "range_neighbors"
	ToolNameGaps      = "range_gaps"
)

// MaxLabelBytes bounds the label accepted by range_reserve.
const MaxLabelBytes = 1 << 10

// Sentinel errors for tool input validation.
var (
	// ErrLabelTooLarge indicates the label exceeds MaxLabelBytes.
	ErrLabelTooLarge = errors.New("label exceeds maximum size")
	// ErrEmptyWindow indicates a gaps window whose end is not after its start.
	ErrEmptyWindow = errors.New("to must be after from")
)

// Input types (auto-generate JSON schemas via struct tags).

// ReserveInput is the input schema for range_reserve.
type ReserveInput struct {
	End   float64 `json:"end"             jsonschema:"exclusive end of the range"`
	Label string  `json:"label,omitempty" jsonschema:"optional free-form label stored with the range"`
	Start float64 `json:"start"           jsonschema:"inclusive start of the range"`
}

// CheckInput is the input schema for range_check.
type CheckInput struct {
	End   float64 `json:"end"   jsonschema:"exclusive end of the range"`
	Start float64 `json:"start" jsonschema:"inclusive start of the range"`
}

// ListInput is the input schema for range_list.
type ListInput struct{}

// NeighborsInput is the input schema for range_neighbors.
type NeighborsInput struct {
	Time float64 `json:"time" jsonschema:"time point to look around"`
}

// GapsInput is the input schema for range_gaps.
type GapsInput struct {
	From float64 `json:"from" jsonschema:"inclusive start of the window"`
	To   float64 `json:"to"   jsonschema:"exclusive end of the window"`
}

// Result types.

// RangeView is the JSON form of a stored range.
type RangeView struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Label  string  `json:"label,omitempty"`
	Source string  `json:"source,omitempty"`
	Line   int     `json:"line,omitempty"`
}

// ReserveResult is returned by range_reserve.
type ReserveResult struct {
	Accepted  bool       `json:"accepted"`
	Range     RangeView  `json:"range"`
	BlockedBy *RangeView `json:"blocked_by,omitempty"`
	Size      int        `json:"size"`
}

// CheckResult is returned by range_check.
type CheckResult struct {
	Conflict  bool       `json:"conflict"`
	BlockedBy *RangeView `json:"blocked_by,omitempty"`
}

// ListResult is returned by range_list.
type ListResult struct {
	Count  int         `json:"count"`
	Ranges []RangeView `json:"ranges"`
}

// NeighborsResult is returned by range_neighbors.
type NeighborsResult struct {
	Time      float64    `json:"time"`
	PrevStart *float64   `json:"prev_start,omitempty"`
	NextStart *float64   `json:"next_start,omitempty"`
	Owner     *RangeView `json:"owner,omitempty"`
}

// GapsResult is returned by range_gaps.
type GapsResult struct {
	Gaps []rangeset.Span `json:"gaps"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleReserve(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ReserveInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Label) > MaxLabelBytes {
		return errorResult(fmt.Errorf("%w: %d bytes (max %d)", ErrLabelTooLarge, len(input.Label), MaxLabelBytes))
	}

	out, err := s.ledger.Reserve(ctx, input.Start, input.End, ledger.Booking{Label: input.Label, Source: ToolNameReserve})
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(ReserveResult{
		Accepted:  out.Accepted,
		Range:     viewOf(out.Range),
		BlockedBy: optionalView(out.BlockedBy),
		Size:      out.Size,
	})
}

func (s *Server) handleCheck(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input CheckInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	out, err := s.ledger.Check(ctx, input.Start, input.End)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(CheckResult{Conflict: !out.Accepted, BlockedBy: optionalView(out.BlockedBy)})
}

func (s *Server) handleList(
	_ context.Context, _ *mcpsdk.CallToolRequest, _ ListInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	stored := s.ledger.Snapshot()

	views := make([]RangeView, len(stored))
	for i, r := range stored {
		views[i] = viewOf(r)
	}

	return jsonResult(ListResult{Count: len(views), Ranges: views})
}

func (s *Server) handleNeighbors(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input NeighborsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	hood := s.ledger.Neighbors(ctx, input.Time)

	res := NeighborsResult{Time: hood.Time, Owner: optionalView(hood.Owner)}
	if hood.HasPrev {
		res.PrevStart = &hood.PrevStart
	}

	if hood.HasNext {
		res.NextStart = &hood.NextStart
	}

	return jsonResult(res)
}

func (s *Server) handleGaps(
	_ context.Context, _ *mcpsdk.CallToolRequest, input GapsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if !(input.From < input.To) {
		return errorResult(fmt.Errorf("%w: [%g, %g)", ErrEmptyWindow, input.From, input.To))
	}

	gaps := s.ledger.Gaps(input.From, input.To)
	if gaps == nil {
		gaps = []rangeset.Span{}
	}

	return jsonResult(GapsResult{Gaps: gaps})
}

func viewOf(r *ledger.Range) RangeView {
	booking := r.Payload()

	return RangeView{
		Start:  r.Start(),
		End:    r.End(),
		Label:  booking.Label,
		Source: booking.Source,
		Line:   booking.Line,
	}
}

func optionalView(r *ledger.Range) *RangeView {
	if r == nil {
		return nil
	}

	view := viewOf(r)

	return &view
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
