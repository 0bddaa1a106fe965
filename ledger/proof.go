package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// CompletionProofMessage is the message a learner personal-signs to prove
// they finished a course
func CompletionProofMessage(courseID uint, wallet string) string {
	return fmt.Sprintf("educhain:complete:%d:%s", courseID, strings.ToLower(wallet))
}

// VerifyPersonalSignature checks an EIP-191 personal-sign signature against
// the expected wallet address
func VerifyPersonalSignature(wallet, message, signatureHex string) bool {
	signature, err := hexutil.Decode(signatureHex)
	if err != nil || len(signature) != 65 {
		return false
	}

	// Wallets return V as 27/28, go-ethereum expects 0/1
	if signature[64] >= 27 {
		signature[64] -= 27
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixed))

	pubKey, err := crypto.SigToPub(hash.Bytes(), signature)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recovered.Hex(), wallet)
}
