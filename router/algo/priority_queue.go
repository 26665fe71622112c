package algo

// Item is an entry of the open set.
type Item struct {
	Value    int     // 搜索节点在arena中的下标
	Priority float64 // f = g + w*h
	H        float64 // f相同时h较小者优先
	Seq      int     // 插入序号，保证出堆顺序确定
	Index    int     // heap.Interface维护的下标
}

// PriorityQueue implements heap.Interface as a min-heap on (Priority, H, Seq).
type PriorityQueue []*Item

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority < pq[j].Priority
	}
	if pq[i].H != pq[j].H {
		return pq[i].H < pq[j].H
	}
	return pq[i].Seq < pq[j].Seq
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *PriorityQueue) Push(x any) {
	item := x.(*Item)
	item.Index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	*pq = old[:n-1]
	return item
}
