package approval

// indexed reports whether requestID has a cached pool id.
func (c *Coordinator) indexed(requestID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[requestID]
	return ok
}
