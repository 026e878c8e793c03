package object

// CommitSigningPayload returns the canonical bytes that are signed for a
// commit: the serialized commit with the signature header left out.
func CommitSigningPayload(c *CommitObj) []byte {
	if c == nil {
		return nil
	}
	unsigned := *c
	unsigned.Signature = ""
	return MarshalCommit(&unsigned)
}
