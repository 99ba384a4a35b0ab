package badger

import (
	"encoding/binary"

	"github.com/poiesic/kgingest/core"
)

// Key prefixes for different data types
const (
	entityRecordPrefix       = "entrec"
	entityOwnerPrefix        = "entown"
	entitySourcePrefix       = "entsrc"
	entityIDSeq              = "entrecseq"
	relationshipRecordPrefix = "relrec"
	relationshipEndPrefix    = "relend"
	relationshipIDSeq        = "relrecseq"
	historyPrefix            = "hist"
	historyIDSeq             = "histseq"
	sourceRunPrefix          = "srcrun"
)

// keySeparator terminates variable-length string components so that one
// owner or source can never be a prefix match for another.
const keySeparator = 0x00

// makeIDKey generates a key of the form prefix:id.
// IDs are written BigEndian so lexicographic order matches numeric order.
func makeIDKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+1+8)
	offset := copy(buf, prefix)
	buf[offset] = ':'
	offset++
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeStringPrefix generates a partial key of the form prefix:value\x00.
func makeStringPrefix(prefix, value string) []byte {
	buf := make([]byte, 0, len(prefix)+1+len(value)+1)
	buf = append(buf, prefix...)
	buf = append(buf, ':')
	buf = append(buf, value...)
	buf = append(buf, keySeparator)
	return buf
}

// makeStringIDKey generates a composite index key.
// Format: prefix:value\x00id
func makeStringIDKey(prefix, value string, id core.ID) []byte {
	buf := makeStringPrefix(prefix, value)
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return makeIDKey(entityRecordPrefix, id)
}

// makeEntityOwnerKey generates a key for the owner index.
func makeEntityOwnerKey(ownerID string, id core.ID) []byte {
	return makeStringIDKey(entityOwnerPrefix, ownerID, id)
}

// makeEntitySourceKey generates a key for the source index.
func makeEntitySourceKey(sourceID string, id core.ID) []byte {
	return makeStringIDKey(entitySourcePrefix, sourceID, id)
}

// makeRelationshipKey generates a key for a relationship by ID.
func makeRelationshipKey(id core.ID) []byte {
	return makeIDKey(relationshipRecordPrefix, id)
}

// makeRelationshipEndKey generates a key for the endpoint index.
// Each relationship is indexed under both of its endpoints.
// Format: prefix:entityID:relationshipID
func makeRelationshipEndKey(entityID, relID core.ID) []byte {
	buf := makeIDKey(relationshipEndPrefix, entityID)
	return binary.BigEndian.AppendUint64(buf, uint64(relID))
}

// makePartialRelationshipEndKey generates a partial key for endpoint queries.
func makePartialRelationshipEndKey(entityID core.ID) []byte {
	return makeIDKey(relationshipEndPrefix, entityID)
}

// makeHistoryKey generates a key for a history entry.
// Format: prefix:kind:targetID:entryID
func makeHistoryKey(kind core.TargetKind, targetID, entryID core.ID) []byte {
	buf := makePartialHistoryKey(kind, targetID)
	return binary.BigEndian.AppendUint64(buf, uint64(entryID))
}

// makePartialHistoryKey generates a partial key for one target's history.
func makePartialHistoryKey(kind core.TargetKind, targetID core.ID) []byte {
	buf := make([]byte, 0, len(historyPrefix)+2+8)
	buf = append(buf, historyPrefix...)
	buf = append(buf, ':', byte(kind))
	return binary.BigEndian.AppendUint64(buf, uint64(targetID))
}

// makeSourceRunKey generates a key for a source run.
func makeSourceRunKey(sourceID string) []byte {
	return append([]byte(sourceRunPrefix+":"), sourceID...)
}

// idFromKeySuffix decodes the trailing 8 byte ID of an index key.
func idFromKeySuffix(key []byte) core.ID {
	if len(key) < 8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
