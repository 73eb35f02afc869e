package solverx

import (
	"bytes"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/gatproject/gat/pkg/gaterrors"
)

// Both schemas pack every field into a single row: scalar fields are
// one-element columns and vector fields are List columns, the usual
// way to carry "a bag of vectors of differing length" as one Arrow
// record batch rather than one row per element.
var problemSchema = arrow.NewSchema([]arrow.Field{
	{Name: "num_vars", Type: arrow.PrimitiveTypes.Int32},
	{Name: "num_constraints", Type: arrow.PrimitiveTypes.Int32},
	{Name: "objective", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	{Name: "constraint_rows", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
	{Name: "constraint_cols", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
	{Name: "constraint_vals", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	{Name: "var_lower", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	{Name: "var_upper", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	{Name: "constraint_lower", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	{Name: "constraint_upper", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	{Name: "var_type", Type: arrow.ListOf(arrow.PrimitiveTypes.Int8), Nullable: true},
}, nil)

var solutionSchema = arrow.NewSchema([]arrow.Field{
	{Name: "status", Type: arrow.PrimitiveTypes.Int32},
	{Name: "objective", Type: arrow.PrimitiveTypes.Float64},
	{Name: "primal", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	{Name: "dual", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	{Name: "iterations", Type: arrow.PrimitiveTypes.Int32},
	{Name: "solve_time_ms", Type: arrow.PrimitiveTypes.Int64},
}, nil)

func appendFloat64List(b *array.RecordBuilder, field int, vals []float64) {
	lb := b.Field(field).(*array.ListBuilder)
	lb.Append(true)
	vb := lb.ValueBuilder().(*array.Float64Builder)
	vb.AppendValues(vals, nil)
}

func appendInt32List(b *array.RecordBuilder, field int, vals []int32) {
	lb := b.Field(field).(*array.ListBuilder)
	lb.Append(true)
	vb := lb.ValueBuilder().(*array.Int32Builder)
	vb.AppendValues(vals, nil)
}

// encodeProblem serializes problem as a single-record Arrow IPC
// stream message (spec §4.6 "a single Arrow IPC message (schema + one
// record batch)").
func encodeProblem(problem ProblemBatch) ([]byte, error) {
	mem := memory.NewGoAllocator()
	rb := array.NewRecordBuilder(mem, problemSchema)
	defer rb.Release()

	rb.Field(0).(*array.Int32Builder).Append(int32(problem.NumVars))
	rb.Field(1).(*array.Int32Builder).Append(int32(problem.NumConstraints))
	appendFloat64List(rb, 2, problem.Objective)
	appendInt32List(rb, 3, problem.ConstraintRows)
	appendInt32List(rb, 4, problem.ConstraintCols)
	appendFloat64List(rb, 5, problem.ConstraintVals)
	appendFloat64List(rb, 6, problem.VarLower)
	appendFloat64List(rb, 7, problem.VarUpper)
	appendFloat64List(rb, 8, problem.ConstraintLower)
	appendFloat64List(rb, 9, problem.ConstraintUpper)
	typeBuilder := rb.Field(10).(*array.ListBuilder)
	if problem.VarType == nil {
		typeBuilder.AppendNull()
	} else {
		typeBuilder.Append(true)
		typeBuilder.ValueBuilder().(*array.Int8Builder).AppendValues(problem.VarType, nil)
	}

	rec := rb.NewRecord()
	defer rec.Release()
	return writeIPCRecord(problemSchema, rec)
}

func decodeProblem(data []byte) (ProblemBatch, error) {
	rec, err := readIPCRecord(problemSchema, data)
	if err != nil {
		return ProblemBatch{}, err
	}
	defer rec.Release()

	return ProblemBatch{
		NumVars:         int(rec.Column(0).(*array.Int32).Value(0)),
		NumConstraints:  int(rec.Column(1).(*array.Int32).Value(0)),
		Objective:       float64ListAt(rec.Column(2), 0),
		ConstraintRows:  int32ListAt(rec.Column(3), 0),
		ConstraintCols:  int32ListAt(rec.Column(4), 0),
		ConstraintVals:  float64ListAt(rec.Column(5), 0),
		VarLower:        float64ListAt(rec.Column(6), 0),
		VarUpper:        float64ListAt(rec.Column(7), 0),
		ConstraintLower: float64ListAt(rec.Column(8), 0),
		ConstraintUpper: float64ListAt(rec.Column(9), 0),
		VarType:         int8ListAt(rec.Column(10), 0),
	}, nil
}

func encodeSolution(sol SolutionBatch) ([]byte, error) {
	mem := memory.NewGoAllocator()
	rb := array.NewRecordBuilder(mem, solutionSchema)
	defer rb.Release()

	rb.Field(0).(*array.Int32Builder).Append(int32(sol.Status))
	rb.Field(1).(*array.Float64Builder).Append(sol.Objective)
	appendFloat64List(rb, 2, sol.Primal)
	appendFloat64List(rb, 3, sol.Dual)
	rb.Field(4).(*array.Int32Builder).Append(int32(sol.Iterations))
	rb.Field(5).(*array.Int64Builder).Append(sol.SolveTimeMS)

	rec := rb.NewRecord()
	defer rec.Release()
	return writeIPCRecord(solutionSchema, rec)
}

func decodeSolution(data []byte) (SolutionBatch, error) {
	rec, err := readIPCRecord(solutionSchema, data)
	if err != nil {
		return SolutionBatch{}, err
	}
	defer rec.Release()

	return SolutionBatch{
		Status:      SolveStatus(rec.Column(0).(*array.Int32).Value(0)),
		Objective:   rec.Column(1).(*array.Float64).Value(0),
		Primal:      float64ListAt(rec.Column(2), 0),
		Dual:        float64ListAt(rec.Column(3), 0),
		Iterations:  int(rec.Column(4).(*array.Int32).Value(0)),
		SolveTimeMS: rec.Column(5).(*array.Int64).Value(0),
	}, nil
}

func writeIPCRecord(schema *arrow.Schema, rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	if err := w.Write(rec); err != nil {
		return nil, gaterrors.Wrap(gaterrors.KindProtocolError, "encoding arrow IPC record", err, nil)
	}
	if err := w.Close(); err != nil {
		return nil, gaterrors.Wrap(gaterrors.KindProtocolError, "closing arrow IPC writer", err, nil)
	}
	return buf.Bytes(), nil
}

func readIPCRecord(schema *arrow.Schema, data []byte) (arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithSchema(schema))
	if err != nil {
		return nil, gaterrors.Wrap(gaterrors.KindProtocolVersionMismatch, "opening arrow IPC stream", err, nil)
	}
	defer reader.Release()
	if !reader.Next() {
		if err := reader.Err(); err != nil && err != io.EOF {
			return nil, gaterrors.Wrap(gaterrors.KindProtocolError, "reading arrow IPC record", err, nil)
		}
		return nil, gaterrors.New(gaterrors.KindProtocolError, "arrow IPC message carried no record batch", nil)
	}
	rec := reader.Record()
	rec.Retain()
	return rec, nil
}

func float64ListAt(col arrow.Array, row int) []float64 {
	list := col.(*array.List)
	values := list.ListValues().(*array.Float64)
	start, end := list.ValueOffsets(row)
	out := make([]float64, end-start)
	for i := range out {
		out[i] = values.Value(int(start) + i)
	}
	return out
}

func int32ListAt(col arrow.Array, row int) []int32 {
	list := col.(*array.List)
	values := list.ListValues().(*array.Int32)
	start, end := list.ValueOffsets(row)
	out := make([]int32, end-start)
	for i := range out {
		out[i] = values.Value(int(start) + i)
	}
	return out
}

func int8ListAt(col arrow.Array, row int) []int8 {
	list := col.(*array.List)
	if list.IsNull(row) {
		return nil
	}
	values := list.ListValues().(*array.Int8)
	start, end := list.ValueOffsets(row)
	out := make([]int8, end-start)
	for i := range out {
		out[i] = values.Value(int(start) + i)
	}
	return out
}
