// Package stream defines the contract with the streaming provider, the
// collaborator that authenticates a session and yields raw encoded audio for
// an item id, and ships an HTTP implementation of it.
//
// Providers signal rate limiting by returning an error that matches
// ErrTransient; everything else is fatal for the item being fetched:
//
//	s, err := provider.Open(ctx, item.ID)
//	switch {
//	case errors.Is(err, stream.ErrTransient):
//	    // back off and try again
//	case err != nil:
//	    // give up on this item
//	}
//	defer s.Close()
//	io.CopyN(file, s, s.Size())
package stream
