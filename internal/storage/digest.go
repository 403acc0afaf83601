package storage

import (
	"encoding/hex"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/Tiliavir/booking-ledger/internal/model"
)

// digestMode is CBOR Core Deterministic Encoding: the same records always
// produce the same bytes regardless of map or struct iteration order.
var digestMode cbor.EncMode

func init() {
	var err error
	digestMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
}

// digestRecord pins instants to unix seconds so that the digest does not
// depend on the zone a record was decoded in.
type digestRecord struct {
	_       struct{} `cbor:",toarray"`
	Start   int64
	End     int64
	Issue   string
	Comment string
}

// Digest returns the hex blake3 hash of the records' canonical CBOR form.
func Digest(records []model.BookingRecord) string {
	rows := make([]digestRecord, len(records))
	for i, r := range records {
		rows[i] = digestRecord{Start: r.Start.Unix(), End: r.End.Unix(), Issue: r.Issue, Comment: r.Comment}
	}
	data, err := digestMode.Marshal(rows)
	if err != nil {
		// Only plain ints and strings are encoded; this cannot fail.
		panic("storage: encoding digest input: " + err.Error())
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
