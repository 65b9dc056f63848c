package coordinatorapi

import (
	"time"

	"github.com/mberk/shepherd/checkpoint"
	"github.com/mberk/shepherd/coordinatorapi/proto"
	"github.com/mberk/shepherd/registry"
	"github.com/mberk/shepherd/shardplan"
)

func assignmentToProto(asn shardplan.Assignment) *proto.ShardAssignment {
	ranges := make([]*proto.SampleRange, len(asn.Ranges))
	for i, rg := range asn.Ranges {
		ranges[i] = &proto.SampleRange{Start: rg.Start, End: rg.End}
	}
	return &proto.ShardAssignment{
		DatasetId: asn.DatasetID,
		Epoch:     asn.Epoch,
		Rank:      int32(asn.Rank),
		WorldSize: int32(asn.WorldSize),
		Ranges:    ranges,
		Paths:     asn.Paths,
	}
}

func assignmentFromProto(res *proto.ShardAssignment) shardplan.Assignment {
	ranges := make([]shardplan.Range, len(res.Ranges))
	for i, rg := range res.Ranges {
		ranges[i] = shardplan.Range{Start: rg.Start, End: rg.End}
	}
	return shardplan.Assignment{
		DatasetID: res.DatasetId,
		Epoch:     res.Epoch,
		Rank:      int(res.Rank),
		WorldSize: int(res.WorldSize),
		Ranges:    ranges,
		Paths:     res.Paths,
	}
}

func statusToProto(st registry.Status) *proto.WorkerStatus {
	switch v := st.(type) {
	case registry.LoadingData:
		return &proto.WorkerStatus{State: proto.WorkerStatus_LOADING_DATA, DatasetId: v.DatasetID}
	case registry.Training:
		return &proto.WorkerStatus{
			State:        proto.WorkerStatus_TRAINING,
			CurrentStep:  v.Step,
			CurrentEpoch: v.Epoch,
			CurrentTask:  v.Task,
		}
	case registry.Checkpointing:
		return &proto.WorkerStatus{State: proto.WorkerStatus_CHECKPOINTING, CurrentStep: v.Step}
	default:
		return &proto.WorkerStatus{State: proto.WorkerStatus_IDLE}
	}
}

func statusFromProto(st *proto.WorkerStatus) registry.Status {
	if st == nil {
		return registry.Idle{}
	}
	switch st.State {
	case proto.WorkerStatus_LOADING_DATA:
		return registry.LoadingData{DatasetID: st.DatasetId}
	case proto.WorkerStatus_TRAINING:
		return registry.Training{Step: st.CurrentStep, Epoch: st.CurrentEpoch, Task: st.CurrentTask}
	case proto.WorkerStatus_CHECKPOINTING:
		return registry.Checkpointing{Step: st.CurrentStep}
	default:
		return registry.Idle{}
	}
}

func resourcesToProto(res registry.ResourceStats) *proto.ResourceUsage {
	accels := make([]*proto.AcceleratorUsage, len(res.Accelerators))
	for i, acc := range res.Accelerators {
		accels[i] = &proto.AcceleratorUsage{
			Id:                 acc.ID,
			UtilizationPercent: acc.UtilizationPercent,
			MemoryUsedBytes:    acc.MemoryUsedBytes,
			MemoryTotalBytes:   acc.MemoryTotalBytes,
			TemperatureCelsius: acc.TemperatureCelsius,
		}
	}
	return &proto.ResourceUsage{
		CpuPercent:      res.CPUPercent,
		MemoryUsedBytes: res.MemoryUsedBytes,
		Accelerators:    accels,
	}
}

func resourcesFromProto(res *proto.ResourceUsage) registry.ResourceStats {
	if res == nil {
		return registry.ResourceStats{}
	}
	accels := make([]registry.AcceleratorStats, len(res.Accelerators))
	for i, acc := range res.Accelerators {
		accels[i] = registry.AcceleratorStats{
			ID:                 acc.Id,
			UtilizationPercent: acc.UtilizationPercent,
			MemoryUsedBytes:    acc.MemoryUsedBytes,
			MemoryTotalBytes:   acc.MemoryTotalBytes,
			TemperatureCelsius: acc.TemperatureCelsius,
		}
	}
	return registry.ResourceStats{
		CPUPercent:      res.CpuPercent,
		MemoryUsedBytes: res.MemoryUsedBytes,
		Accelerators:    accels,
	}
}

func recordToProto(rec checkpoint.Record) *proto.CheckpointRecord {
	var ts int64
	if !rec.CreatedAt.IsZero() {
		ts = rec.CreatedAt.UnixMilli()
	}
	return &proto.CheckpointRecord{
		CheckpointId: rec.CheckpointID,
		WorkerId:     rec.WorkerID,
		Step:         rec.Step,
		Epoch:        rec.Epoch,
		StoragePath:  rec.StoragePath,
		SizeBytes:    rec.SizeBytes,
		TimestampMs:  ts,
		Type:         proto.CheckpointType(rec.Type),
	}
}

func recordFromProto(rec *proto.CheckpointRecord) checkpoint.Record {
	var createdAt time.Time
	if rec.TimestampMs > 0 {
		createdAt = time.UnixMilli(rec.TimestampMs)
	}
	return checkpoint.Record{
		CheckpointID: rec.CheckpointId,
		WorkerID:     rec.WorkerId,
		Step:         rec.Step,
		Epoch:        rec.Epoch,
		StoragePath:  rec.StoragePath,
		SizeBytes:    rec.SizeBytes,
		CreatedAt:    createdAt,
		Type:         checkpoint.Type(rec.Type),
	}
}
