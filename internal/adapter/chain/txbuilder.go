package chain

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	Address    string
	IsSigner   bool
	IsWritable bool
}

// Instruction is one program invocation inside a transaction.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// SystemTransfer builds the native lamport transfer instruction.
func SystemTransfer(from, to string, lamports int64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2) // Transfer
	binary.LittleEndian.PutUint64(data[4:12], uint64(lamports))

	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Address: from, IsSigner: true, IsWritable: true},
			{Address: to, IsWritable: true},
		},
		Data: data,
	}
}

// TokenTransfer builds the token-program transfer instruction between two
// holding sub-accounts.
func TokenTransfer(sourceATA, destATA, owner string, amount int64) Instruction {
	data := make([]byte, 9)
	data[0] = 3 // Transfer
	binary.LittleEndian.PutUint64(data[1:9], uint64(amount))

	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Address: sourceATA, IsWritable: true},
			{Address: destATA, IsWritable: true},
			{Address: owner, IsSigner: true},
		},
		Data: data,
	}
}

// CreateAssociatedTokenAccount builds the instruction that provisions the
// owner's holding sub-account for a mint, funded by payer.
func CreateAssociatedTokenAccount(payer, ata, owner, mint string) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{Address: payer, IsSigner: true, IsWritable: true},
			{Address: ata, IsWritable: true},
			{Address: owner},
			{Address: mint},
			{Address: SystemProgramID},
			{Address: TokenProgramID},
		},
		Data: nil,
	}
}

// compiledAccount tracks an account's merged permissions across instructions.
type compiledAccount struct {
	address    string
	isSigner   bool
	isWritable bool
}

// BuildTransaction assembles and signs a legacy-format transaction.
// feePayer must match the signing key; the serialized form is
// signatures ‖ message, ready for base64 submission.
func BuildTransaction(feePayer *Keypair, recentBlockhash string, instructions []Instruction) ([]byte, error) {
	msg, err := compileMessage(feePayer.Address, recentBlockhash, instructions)
	if err != nil {
		return nil, err
	}

	sig := ed25519.Sign(feePayer.PrivateKey, msg)

	var tx bytes.Buffer
	writeCompactU16(&tx, 1)
	tx.Write(sig)
	tx.Write(msg)
	return tx.Bytes(), nil
}

// compileMessage encodes the legacy message: header, ordered account keys,
// blockhash, compiled instructions.
func compileMessage(feePayer, recentBlockhash string, instructions []Instruction) ([]byte, error) {
	accounts := collectAccounts(feePayer, instructions)

	var signers, writables, readonlies []compiledAccount
	for _, a := range accounts {
		switch {
		case a.isSigner:
			signers = append(signers, a)
		case a.isWritable:
			writables = append(writables, a)
		default:
			readonlies = append(readonlies, a)
		}
	}

	// Signer ordering: fee payer first. All signers here are writable.
	ordered := append(append(signers, writables...), readonlies...)
	index := make(map[string]uint8, len(ordered))
	for i, a := range ordered {
		index[a.address] = uint8(i)
	}

	blockhash, err := decodeAddress(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("decode blockhash: %w", err)
	}

	var msg bytes.Buffer
	// Header: required signatures, readonly signed, readonly unsigned.
	msg.WriteByte(uint8(len(signers)))
	msg.WriteByte(0)
	msg.WriteByte(uint8(len(readonlies)))

	writeCompactU16(&msg, len(ordered))
	for _, a := range ordered {
		key, err := decodeAddress(a.address)
		if err != nil {
			return nil, err
		}
		msg.Write(key[:])
	}

	msg.Write(blockhash[:])

	writeCompactU16(&msg, len(instructions))
	for _, ins := range instructions {
		progIdx, ok := index[ins.ProgramID]
		if !ok {
			return nil, fmt.Errorf("program %s not in account table", ins.ProgramID)
		}
		msg.WriteByte(progIdx)

		writeCompactU16(&msg, len(ins.Accounts))
		for _, acc := range ins.Accounts {
			msg.WriteByte(index[acc.Address])
		}

		writeCompactU16(&msg, len(ins.Data))
		msg.Write(ins.Data)
	}

	return msg.Bytes(), nil
}

// collectAccounts dedupes accounts across instructions, merging permissions.
// The fee payer always leads; program ids ride along as readonly.
func collectAccounts(feePayer string, instructions []Instruction) []compiledAccount {
	order := []string{feePayer}
	merged := map[string]*compiledAccount{
		feePayer: {address: feePayer, isSigner: true, isWritable: true},
	}

	add := func(addr string, signer, writable bool) {
		if a, ok := merged[addr]; ok {
			a.isSigner = a.isSigner || signer
			a.isWritable = a.isWritable || writable
			return
		}
		merged[addr] = &compiledAccount{address: addr, isSigner: signer, isWritable: writable}
		order = append(order, addr)
	}

	for _, ins := range instructions {
		for _, acc := range ins.Accounts {
			add(acc.Address, acc.IsSigner, acc.IsWritable)
		}
		add(ins.ProgramID, false, false)
	}

	out := make([]compiledAccount, 0, len(order))
	for _, addr := range order {
		out = append(out, *merged[addr])
	}
	return out
}

// writeCompactU16 encodes a length in the wire format's compact-u16 form.
func writeCompactU16(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

// SignatureFromTransaction extracts the first signature, base58-encoded.
// This is the transaction's network identifier.
func SignatureFromTransaction(tx []byte) (string, error) {
	if len(tx) < 1+ed25519.SignatureSize {
		return "", fmt.Errorf("transaction too short")
	}
	// First byte is the compact-u16 signature count (always < 128 here).
	return base58.Encode(tx[1 : 1+ed25519.SignatureSize]), nil
}
