package lsbba

import (
	"bytes"
	"fmt"
	"log"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/Axis-Fi/axis-core-sub009/auction"
	"github.com/Axis-Fi/axis-core-sub009/rsaoaep"
)

// acceptedClaim is a verified decrypt pending commit.
type acceptedClaim struct {
	bidID     uint64
	amountOut *uint256.Int
}

// DecryptAndSortBids advances the lot's decryption cursor with the supplied
// claims, legal only after conclusion and before the lot is fully
// decrypted.
//
// Bids are processed in strictly descending bid-id order starting at the
// cursor. A claim is verified by re-encrypting its amount out (32-byte
// big-endian) under the lot's public modulus, with the lot id's decimal
// string as the OAEP label and the claim's seed, and comparing the result
// to the stored ciphertext. Cancelled bids are skipped without consuming a
// claim. An empty claim slice is a legal no-op (it still consumes any
// cancelled bids at the cursor); a slice longer than the remaining
// undecrypted bids fails.
//
// The call is atomic: every claim is verified before any state is touched,
// so a single mismatch leaves the cursor, the ledger and the sorted queue
// exactly as they were.
func (m *Module) DecryptAndSortBids(lotID uint64, decrypts []auction.Decrypt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.lots[lotID]
	if !ok {
		return fmt.Errorf("%w: %d", auction.ErrInvalidLotID, lotID)
	}
	if st.data.Status != StatusCreated {
		return fmt.Errorf("%w: lot %d is %s", auction.ErrWrongState, lotID, st.data.Status)
	}
	if m.now().Unix() < st.lot.Conclusion {
		return fmt.Errorf("%w: lot %d has not concluded", auction.ErrWrongState, lotID)
	}

	total := st.submitted()
	label := []byte(strconv.FormatUint(lotID, 10))
	modulus := new(big.Int).SetBytes(st.data.PublicKeyModulus)

	accepted := make([]acceptedClaim, 0, len(decrypts))
	cursor := st.data.NextDecryptIndex
	next := 0
	for cursor < total {
		bidID := total - cursor
		bid := &st.bids[bidID]
		if bid.Status == BidCancelled {
			cursor++
			continue
		}
		if next == len(decrypts) {
			break
		}
		claim := decrypts[next]
		if claim.AmountOut == nil || claim.AmountOut.IsZero() || claim.AmountOut.BitLen() > auction.MaxAmountBits {
			return fmt.Errorf("%w: bid %d: bad amount out", auction.ErrInvalidDecrypt, bidID)
		}
		message := claim.AmountOut.Bytes32()
		ct, err := rsaoaep.Encrypt(message[:], label, modulus, claim.Seed[:])
		if err != nil {
			return fmt.Errorf("%w: bid %d: %v", auction.ErrInvalidDecrypt, bidID, err)
		}
		if !bytes.Equal(ct, bid.EncryptedAmountOut) {
			return fmt.Errorf("%w: bid %d: ciphertext mismatch", auction.ErrInvalidDecrypt, bidID)
		}
		accepted = append(accepted, acceptedClaim{bidID: bidID, amountOut: claim.AmountOut.Clone()})
		next++
		cursor++
	}
	if next < len(decrypts) {
		return fmt.Errorf("%w: %d claims supplied but only %d bids remain", auction.ErrInvalidDecrypt, len(decrypts), next)
	}

	// Commit: nothing above mutated the lot.
	for _, c := range accepted {
		bid := &st.bids[c.bidID]
		bid.Status = BidDecrypted
		bid.MinAmountOut = c.amountOut
		st.queue.Insert(c.bidID, bid.Amount, c.amountOut)
	}
	st.data.NextDecryptIndex = cursor
	if cursor == total {
		st.data.Status = StatusDecrypted
		log.Printf("INFO: lot %d fully decrypted: %d of %d bids in queue", lotID, st.queue.NumBids(), total)
	}
	return nil
}
