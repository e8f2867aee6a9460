package chain

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlockhash(t *testing.T) string {
	t.Helper()
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	return kp.Address // any 32-byte base58 value works as a blockhash
}

func TestSystemTransfer_Encoding(t *testing.T) {
	ins := SystemTransfer("from", "to", 1_000_000_000)

	assert.Equal(t, SystemProgramID, ins.ProgramID)
	require.Len(t, ins.Data, 12)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(ins.Data[0:4]))
	assert.Equal(t, uint64(1_000_000_000), binary.LittleEndian.Uint64(ins.Data[4:12]))

	require.Len(t, ins.Accounts, 2)
	assert.True(t, ins.Accounts[0].IsSigner)
	assert.True(t, ins.Accounts[0].IsWritable)
	assert.False(t, ins.Accounts[1].IsSigner)
	assert.True(t, ins.Accounts[1].IsWritable)
}

func TestTokenTransfer_Encoding(t *testing.T) {
	ins := TokenTransfer("srcATA", "dstATA", "owner", 250_000)

	assert.Equal(t, TokenProgramID, ins.ProgramID)
	require.Len(t, ins.Data, 9)
	assert.Equal(t, byte(3), ins.Data[0])
	assert.Equal(t, uint64(250_000), binary.LittleEndian.Uint64(ins.Data[1:9]))
	assert.True(t, ins.Accounts[2].IsSigner, "owner signs the token transfer")
}

func TestCreateAssociatedTokenAccount_Accounts(t *testing.T) {
	ins := CreateAssociatedTokenAccount("payer", "ata", "owner", "mint")

	assert.Equal(t, AssociatedTokenProgramID, ins.ProgramID)
	assert.Empty(t, ins.Data)
	require.Len(t, ins.Accounts, 6)
	assert.True(t, ins.Accounts[0].IsSigner)
	assert.Equal(t, SystemProgramID, ins.Accounts[4].Address)
	assert.Equal(t, TokenProgramID, ins.Accounts[5].Address)
}

func TestBuildTransaction_SignatureVerifies(t *testing.T) {
	sender, err := GenerateKeypair()
	require.NoError(t, err)
	recipient, err := GenerateKeypair()
	require.NoError(t, err)

	tx, err := BuildTransaction(sender, testBlockhash(t), []Instruction{
		SystemTransfer(sender.Address, recipient.Address, 42),
	})
	require.NoError(t, err)

	// Layout: compact-u16 sig count (1 byte here), 64-byte signature, message.
	require.Greater(t, len(tx), 1+ed25519.SignatureSize)
	assert.Equal(t, byte(1), tx[0])

	sig := tx[1 : 1+ed25519.SignatureSize]
	msg := tx[1+ed25519.SignatureSize:]
	pub := sender.PrivateKey.Public().(ed25519.PublicKey)
	assert.True(t, ed25519.Verify(pub, msg, sig))
}

func TestBuildTransaction_MessageLayout(t *testing.T) {
	sender, err := GenerateKeypair()
	require.NoError(t, err)
	recipient, err := GenerateKeypair()
	require.NoError(t, err)
	blockhash := testBlockhash(t)

	tx, err := BuildTransaction(sender, blockhash, []Instruction{
		SystemTransfer(sender.Address, recipient.Address, 42),
	})
	require.NoError(t, err)

	msg := tx[1+ed25519.SignatureSize:]

	// Header: one signer, no readonly signed, one readonly unsigned (program).
	assert.Equal(t, byte(1), msg[0])
	assert.Equal(t, byte(0), msg[1])
	assert.Equal(t, byte(1), msg[2])

	// Three accounts: sender, recipient, system program — in that order.
	assert.Equal(t, byte(3), msg[3])
	senderKey, _ := decodeAddress(sender.Address)
	recipientKey, _ := decodeAddress(recipient.Address)
	programKey, _ := decodeAddress(SystemProgramID)
	assert.Equal(t, senderKey[:], msg[4:36])
	assert.Equal(t, recipientKey[:], msg[36:68])
	assert.Equal(t, programKey[:], msg[68:100])

	// Recent blockhash follows the account table.
	hashKey, _ := decodeAddress(blockhash)
	assert.Equal(t, hashKey[:], msg[100:132])

	// One instruction: program index 2, accounts [0 1], 12 data bytes.
	assert.Equal(t, byte(1), msg[132])
	assert.Equal(t, byte(2), msg[133])
	assert.Equal(t, byte(2), msg[134])
	assert.Equal(t, []byte{0, 1}, msg[135:137])
	assert.Equal(t, byte(12), msg[137])
}

func TestBuildTransaction_DedupesAccounts(t *testing.T) {
	sender, err := GenerateKeypair()
	require.NoError(t, err)
	recipient, err := GenerateKeypair()
	require.NoError(t, err)

	// Two transfers to the same recipient: accounts appear once.
	tx, err := BuildTransaction(sender, testBlockhash(t), []Instruction{
		SystemTransfer(sender.Address, recipient.Address, 1),
		SystemTransfer(sender.Address, recipient.Address, 2),
	})
	require.NoError(t, err)

	msg := tx[1+ed25519.SignatureSize:]
	assert.Equal(t, byte(3), msg[3], "sender, recipient, program")
}

func TestBuildTransaction_BadBlockhash(t *testing.T) {
	sender, err := GenerateKeypair()
	require.NoError(t, err)

	_, err = BuildTransaction(sender, "garbage", []Instruction{
		SystemTransfer(sender.Address, sender.Address, 1),
	})
	assert.Error(t, err)
}

func TestSignatureFromTransaction(t *testing.T) {
	sender, err := GenerateKeypair()
	require.NoError(t, err)

	tx, err := BuildTransaction(sender, testBlockhash(t), []Instruction{
		SystemTransfer(sender.Address, sender.Address, 1),
	})
	require.NoError(t, err)

	sig, err := SignatureFromTransaction(tx)
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(tx[1:65]), sig)

	_, err = SignatureFromTransaction([]byte{1, 2})
	assert.Error(t, err)
}
