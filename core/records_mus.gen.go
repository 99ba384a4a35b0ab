// MUS serializers for the records in models.go, in the shape musgen-go emits
// for them. cmd/musgen is the source of truth: run `go generate ./core` after
// changing a record struct and commit the result.

package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

var IDMUS = idMUS{}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ID(tmp)
	return
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

var CategoryMUS = categoryMUS{}

type categoryMUS struct{}

func (s categoryMUS) Marshal(v Category, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s categoryMUS) Unmarshal(bs []byte) (v Category, n int, err error) {
	tmp, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v = Category(tmp)
	return
}

func (s categoryMUS) Size(v Category) (size int) {
	return ord.String.Size(string(v))
}

var SemanticStateMUS = semanticStateMUS{}

type semanticStateMUS struct{}

func (s semanticStateMUS) Marshal(v SemanticState, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s semanticStateMUS) Unmarshal(bs []byte) (v SemanticState, n int, err error) {
	tmp, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v = SemanticState(tmp)
	return
}

func (s semanticStateMUS) Size(v SemanticState) (size int) {
	return ord.String.Size(string(v))
}

var TargetKindMUS = targetKindMUS{}

type targetKindMUS struct{}

func (s targetKindMUS) Marshal(v TargetKind, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s targetKindMUS) Unmarshal(bs []byte) (v TargetKind, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = TargetKind(tmp)
	return
}

func (s targetKindMUS) Size(v TargetKind) (size int) {
	return varint.Int.Size(int(v))
}

var float64MUS = float64Ser{}

type float64Ser struct{}

func (s float64Ser) Marshal(v float64, bs []byte) (n int) {
	return varint.Uint64.Marshal(math.Float64bits(v), bs)
}

func (s float64Ser) Unmarshal(bs []byte) (v float64, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = math.Float64frombits(tmp)
	return
}

func (s float64Ser) Size(v float64) (size int) {
	return varint.Uint64.Size(math.Float64bits(v))
}

var timeMicroMUS = timeMicroSer{}

type timeMicroSer struct{}

func (s timeMicroSer) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (s timeMicroSer) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	tmp, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = time.UnixMicro(tmp).UTC()
	return
}

func (s timeMicroSer) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.UnixMicro())
}

var stringMapMUS = stringMapSer{}

type stringMapSer struct{}

func (s stringMapSer) Marshal(v map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for k, e := range v {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(e, bs[n:])
	}
	return
}

func (s stringMapSer) Unmarshal(bs []byte) (v map[string]string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length <= 0 {
		return
	}
	v = make(map[string]string, length)
	var (
		n1 int
		k  string
		e  string
	)
	for i := 0; i < length; i++ {
		k, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		e, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v[k] = e
	}
	return
}

func (s stringMapSer) Size(v map[string]string) (size int) {
	size = varint.Int.Size(len(v))
	for k, e := range v {
		size += ord.String.Size(k)
		size += ord.String.Size(e)
	}
	return
}

var EntityMUS = entityMUS{}

type entityMUS struct{}

func (s entityMUS) Marshal(v Entity, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.OwnerID, bs[n:])
	n += CategoryMUS.Marshal(v.Category, bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += SemanticStateMUS.Marshal(v.State, bs[n:])
	n += float64MUS.Marshal(v.Confidence, bs[n:])
	n += ord.String.Marshal(v.Excerpt, bs[n:])
	n += stringMapMUS.Marshal(v.Properties, bs[n:])
	n += ord.String.Marshal(v.SourceType, bs[n:])
	n += ord.String.Marshal(v.SourceID, bs[n:])
	n += ord.String.Marshal(v.SourceURL, bs[n:])
	n += timeMicroMUS.Marshal(v.InsertedAt, bs[n:])
	n += timeMicroMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (s entityMUS) Unmarshal(bs []byte) (v Entity, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.OwnerID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Category, n1, err = CategoryMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Description, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.State, n1, err = SemanticStateMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Confidence, n1, err = float64MUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Excerpt, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Properties, n1, err = stringMapMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceURL, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	return
}

func (s entityMUS) Size(v Entity) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.OwnerID)
	size += CategoryMUS.Size(v.Category)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.Description)
	size += SemanticStateMUS.Size(v.State)
	size += float64MUS.Size(v.Confidence)
	size += ord.String.Size(v.Excerpt)
	size += stringMapMUS.Size(v.Properties)
	size += ord.String.Size(v.SourceType)
	size += ord.String.Size(v.SourceID)
	size += ord.String.Size(v.SourceURL)
	size += timeMicroMUS.Size(v.InsertedAt)
	size += timeMicroMUS.Size(v.UpdatedAt)
	return
}

var RelationshipMUS = relationshipMUS{}

type relationshipMUS struct{}

func (s relationshipMUS) Marshal(v Relationship, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.FromID, bs[n:])
	n += IDMUS.Marshal(v.ToID, bs[n:])
	n += ord.String.Marshal(v.Type, bs[n:])
	n += varint.Int.Marshal(v.Weight, bs[n:])
	n += SemanticStateMUS.Marshal(v.State, bs[n:])
	n += float64MUS.Marshal(v.Confidence, bs[n:])
	n += ord.String.Marshal(v.Excerpt, bs[n:])
	n += stringMapMUS.Marshal(v.Properties, bs[n:])
	n += timeMicroMUS.Marshal(v.InsertedAt, bs[n:])
	n += timeMicroMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (s relationshipMUS) Unmarshal(bs []byte) (v Relationship, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.FromID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ToID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Type, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Weight, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.State, n1, err = SemanticStateMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Confidence, n1, err = float64MUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Excerpt, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Properties, n1, err = stringMapMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	return
}

func (s relationshipMUS) Size(v Relationship) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.FromID)
	size += IDMUS.Size(v.ToID)
	size += ord.String.Size(v.Type)
	size += varint.Int.Size(v.Weight)
	size += SemanticStateMUS.Size(v.State)
	size += float64MUS.Size(v.Confidence)
	size += ord.String.Size(v.Excerpt)
	size += stringMapMUS.Size(v.Properties)
	size += timeMicroMUS.Size(v.InsertedAt)
	size += timeMicroMUS.Size(v.UpdatedAt)
	return
}

var HistoryEntryMUS = historyEntryMUS{}

type historyEntryMUS struct{}

func (s historyEntryMUS) Marshal(v HistoryEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += TargetKindMUS.Marshal(v.Target, bs[n:])
	n += IDMUS.Marshal(v.TargetID, bs[n:])
	n += SemanticStateMUS.Marshal(v.PreviousState, bs[n:])
	n += SemanticStateMUS.Marshal(v.NewState, bs[n:])
	n += ord.String.Marshal(v.ActorID, bs[n:])
	n += ord.String.Marshal(v.Reason, bs[n:])
	n += timeMicroMUS.Marshal(v.CreatedAt, bs[n:])
	return
}

func (s historyEntryMUS) Unmarshal(bs []byte) (v HistoryEntry, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Target, n1, err = TargetKindMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TargetID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.PreviousState, n1, err = SemanticStateMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.NewState, n1, err = SemanticStateMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ActorID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Reason, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	return
}

func (s historyEntryMUS) Size(v HistoryEntry) (size int) {
	size = IDMUS.Size(v.Id)
	size += TargetKindMUS.Size(v.Target)
	size += IDMUS.Size(v.TargetID)
	size += SemanticStateMUS.Size(v.PreviousState)
	size += SemanticStateMUS.Size(v.NewState)
	size += ord.String.Size(v.ActorID)
	size += ord.String.Size(v.Reason)
	size += timeMicroMUS.Size(v.CreatedAt)
	return
}

var SourceRunMUS = sourceRunMUS{}

type sourceRunMUS struct{}

func (s sourceRunMUS) Marshal(v SourceRun, bs []byte) (n int) {
	n = ord.String.Marshal(v.SourceID, bs)
	n += ord.String.Marshal(v.RunID, bs[n:])
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += varint.Int.Marshal(v.EntitiesCreated, bs[n:])
	n += varint.Int.Marshal(v.RelationshipsCreated, bs[n:])
	n += timeMicroMUS.Marshal(v.CompletedAt, bs[n:])
	return
}

func (s sourceRunMUS) Unmarshal(bs []byte) (v SourceRun, n int, err error) {
	v.SourceID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.RunID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EntitiesCreated, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.RelationshipsCreated, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CompletedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	return
}

func (s sourceRunMUS) Size(v SourceRun) (size int) {
	size = ord.String.Size(v.SourceID)
	size += ord.String.Size(v.RunID)
	size += ord.String.Size(v.ContentHash)
	size += varint.Int.Size(v.EntitiesCreated)
	size += varint.Int.Size(v.RelationshipsCreated)
	size += timeMicroMUS.Size(v.CompletedAt)
	return
}
